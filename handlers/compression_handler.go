package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arjunmehta14/image-press/config"
	"github.com/arjunmehta14/image-press/database"
	"github.com/arjunmehta14/image-press/filestore"
	middleware "github.com/arjunmehta14/image-press/middlewares"
	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/utils"
)

const maxResizeWidth = 3000

type CompressionHandler struct {
	Store  *database.Store
	Files  *filestore.Store
	Config *config.Config
}

func (h *CompressionHandler) signedURLTTL() time.Duration {
	return time.Duration(h.Config.SignedURLExpireMinutes) * time.Minute
}

// ListCompressions returns every compression of one owned image, each with
// a fresh signed URL.
func (h *CompressionHandler) ListCompressions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load compressions")
		return
	}

	image, ok := lookupOwnedImage(w, doc, user, r.PathValue("id"))
	if !ok {
		return
	}

	out := map[string]models.UserImageCompression{}
	for id, c := range doc.ImageCompressions(image.ID) {
		signed, err := utils.SignCompressionURL(c, h.signedURLTTL(), []byte(h.Config.SignedURLSecretKey))
		if err != nil {
			utils.RespondInternal(w, err, "Unable to sign compression url")
			return
		}
		c.SignedURL = signed
		out[id] = c
	}

	utils.RespondSuccess(w, http.StatusOK, out)
}

// CreateCompression validates quality and resize width, runs the image
// transform, and records the result.
func (h *CompressionHandler) CreateCompression(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	quality, err := strconv.Atoi(r.FormValue("quality"))
	if err != nil || quality < 0 || quality > 100 {
		utils.RespondValidationError(w, "Quality must be an integer between 0 and 100")
		return
	}

	resizeWidth := 0
	if raw := r.FormValue("resize_width"); raw != "" {
		resizeWidth, err = strconv.Atoi(raw)
		if err != nil || resizeWidth <= 0 || resizeWidth > maxResizeWidth {
			utils.RespondValidationError(w, "Resize width must be an integer between 1 and 3000")
			return
		}
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load image")
		return
	}

	image, ok := lookupOwnedImage(w, doc, user, r.PathValue("id"))
	if !ok {
		return
	}

	// Intentionally ">": the historical ceiling is max+1 records.
	if len(doc.ImageCompressions(image.ID)) > h.Config.MaxCompressionsPerImage {
		utils.RespondValidationError(w, "Compression limit for this image has been reached")
		return
	}

	record, err := h.Files.CreateCompression(user, image, quality, resizeWidth)
	if err != nil {
		utils.RespondInternal(w, err, "Unable to create compression")
		return
	}

	_, err = h.Store.Write(func(d *database.Document) error {
		if d.Compressions[image.ID] == nil {
			d.Compressions[image.ID] = map[string]models.UserImageCompression{}
		}
		d.Compressions[image.ID][record.ID] = record
		return nil
	})
	if err != nil {
		utils.RespondInternal(w, err, "Unable to save compression record")
		return
	}

	signed, err := utils.SignCompressionURL(record, h.signedURLTTL(), []byte(h.Config.SignedURLSecretKey))
	if err != nil {
		utils.RespondInternal(w, err, "Unable to sign compression url")
		return
	}
	record.SignedURL = signed

	utils.RespondSuccess(w, http.StatusOK, record)
}

// DeleteCompression removes the compression file (best-effort on a missing
// file) and then the record.
func (h *CompressionHandler) DeleteCompression(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load compression")
		return
	}

	image, ok := lookupOwnedImage(w, doc, user, r.PathValue("id"))
	if !ok {
		return
	}

	compression, ok := doc.ImageCompression(image.ID, r.PathValue("cid"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Compression not found")
		return
	}

	if err := h.Files.DeleteCompressionFile(compression); err != nil {
		utils.RespondInternal(w, err, "Unable to delete compression file")
		return
	}

	_, err = h.Store.Write(func(d *database.Document) error {
		delete(d.Compressions[image.ID], compression.ID)
		return nil
	})
	if err != nil {
		utils.RespondInternal(w, err, "Unable to delete compression record")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]string{"deleted": compression.ID})
}

// ServeSignedCompression mirrors ServeSignedImage for compression files.
func (h *CompressionHandler) ServeSignedCompression(w http.ResponseWriter, r *http.Request) {
	signature := r.URL.Query().Get("signature")
	if signature == "" {
		utils.RespondError(w, http.StatusUnauthorized, "Signature is required")
		return
	}

	imageID, compressionID, err := utils.ParseCompressionSignature(signature, []byte(h.Config.SignedURLSecretKey))
	if errors.Is(err, utils.ErrLinkExpired) {
		utils.RespondError(w, http.StatusUnauthorized, "Link expired")
		return
	}
	if err != nil {
		slog.Debug("rejected compression signature", "error", err)
		utils.RespondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load compression")
		return
	}
	compression, ok := doc.ImageCompression(imageID, compressionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Compression not found")
		return
	}

	http.ServeFile(w, r, compression.Path)
}
