package routes

import (
	"net/http"

	"github.com/arjunmehta14/image-press/handlers"
	middleware "github.com/arjunmehta14/image-press/middlewares"
)

func RegisterImageRoutes(mux *http.ServeMux, ih *handlers.ImageHandler, ch *handlers.CompressionHandler, authMw *middleware.Auth) {
	mux.Handle("GET /images", authMw.Middleware(http.HandlerFunc(ih.ListImages)))
	mux.Handle("PUT /image", authMw.Middleware(http.HandlerFunc(ih.UploadImage)))
	mux.Handle("GET /image/{id}", authMw.Middleware(http.HandlerFunc(ih.GetImage)))
	mux.Handle("DELETE /image/{id}", authMw.Middleware(http.HandlerFunc(ih.DeleteImage)))

	mux.Handle("GET /image/{id}/image-compressions", authMw.Middleware(http.HandlerFunc(ch.ListCompressions)))
	mux.Handle("PUT /image/{id}/image-compression", authMw.Middleware(http.HandlerFunc(ch.CreateCompression)))
	mux.Handle("DELETE /image/{id}/image-compression/{cid}", authMw.Middleware(http.HandlerFunc(ch.DeleteCompression)))

	// Signed links carry their own credentials in the query string.
	mux.HandleFunc("GET /image", ih.ServeSignedImage)
	mux.HandleFunc("GET /image-compression", ch.ServeSignedCompression)
}
