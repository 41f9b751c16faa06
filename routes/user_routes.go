package routes

import (
	"net/http"

	"github.com/arjunmehta14/image-press/handlers"
	middleware "github.com/arjunmehta14/image-press/middlewares"
)

func RegisterUserRoutes(mux *http.ServeMux, uh *handlers.UserHandler, authMw *middleware.Auth) {
	mux.Handle("GET /user/{id}", authMw.Middleware(http.HandlerFunc(uh.GetUser)))

	mux.HandleFunc("POST /register", uh.Register)
	mux.HandleFunc("POST /token", uh.Token)
}
