package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arjunmehta14/image-press/config"
	"github.com/arjunmehta14/image-press/database"
	"github.com/arjunmehta14/image-press/filestore"
	middleware "github.com/arjunmehta14/image-press/middlewares"
	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/utils"
)

const maxUploadFormMemory = 32 << 20

var allowedExtensions = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

type ImageHandler struct {
	Store  *database.Store
	Files  *filestore.Store
	Config *config.Config
}

func (h *ImageHandler) signedURLTTL() time.Duration {
	return time.Duration(h.Config.SignedURLExpireMinutes) * time.Minute
}

// ListImages returns every image owned by the caller, each enriched with a
// fresh signed URL and its compression count. The store is read once.
func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load images")
		return
	}

	out := map[string]models.UserImage{}
	for id, image := range doc.UserImages(user.ID) {
		enriched, err := h.enrichImage(doc, image)
		if err != nil {
			utils.RespondInternal(w, err, "Unable to sign image url")
			return
		}
		out[id] = enriched
	}

	utils.RespondSuccess(w, http.StatusOK, out)
}

func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
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

	enriched, err := h.enrichImage(doc, image)
	if err != nil {
		utils.RespondInternal(w, err, "Unable to sign image url")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, enriched)
}

// UploadImage accepts a multipart upload (file_name, file), validates it,
// and stores both the re-encoded file and the new record.
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadFormMemory); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Could not parse multipart form")
		return
	}

	fileName := r.FormValue("file_name")
	if len(fileName) < 3 || len(fileName) > 100 {
		utils.RespondValidationError(w, "File name must be between 3 and 100 characters")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "File not provided")
		return
	}
	defer file.Close()

	if header.Size > h.Config.MaxFileSizeBytes {
		utils.RespondValidationError(w, fmt.Sprintf("File exceeds the %d byte limit", h.Config.MaxFileSizeBytes))
		return
	}

	extension := extensionFromContentType(header.Header.Get("Content-Type"))
	if !allowedExtensions[extension] {
		utils.RespondValidationError(w, "Unsupported image type: only jpeg, png and gif are accepted")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load images")
		return
	}
	// Intentionally ">": the historical ceiling is max+1 records.
	if len(doc.UserImages(user.ID)) > h.Config.MaxUserImages {
		utils.RespondValidationError(w, "Image limit for this account has been reached")
		return
	}

	record, err := h.Files.StoreImage(user, displayName(fileName), extension, file, header.Size)
	if err != nil {
		utils.RespondInternal(w, err, "Unable to store image")
		return
	}

	doc, err = h.Store.Write(func(d *database.Document) error {
		if d.Images[user.ID] == nil {
			d.Images[user.ID] = map[string]models.UserImage{}
		}
		d.Images[user.ID][record.ID] = record
		return nil
	})
	if err != nil {
		utils.RespondInternal(w, err, "Unable to save image record")
		return
	}

	enriched, err := h.enrichImage(doc, record)
	if err != nil {
		utils.RespondInternal(w, err, "Unable to sign image url")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, enriched)
}

// DeleteImage removes the stored file (best-effort on a missing file) and
// then the record.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
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

	if err := h.Files.DeleteImageFile(image); err != nil {
		utils.RespondInternal(w, err, "Unable to delete image file")
		return
	}

	_, err = h.Store.Write(func(d *database.Document) error {
		delete(d.Images[user.ID], image.ID)
		return nil
	})
	if err != nil {
		utils.RespondInternal(w, err, "Unable to delete image record")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, map[string]string{"deleted": image.ID})
}

// ServeSignedImage trusts only the signature query parameter: no bearer
// token is read. Expired links get a distinct message.
func (h *ImageHandler) ServeSignedImage(w http.ResponseWriter, r *http.Request) {
	signature := r.URL.Query().Get("signature")
	if signature == "" {
		utils.RespondError(w, http.StatusUnauthorized, "Signature is required")
		return
	}

	userID, imageID, err := utils.ParseImageSignature(signature, []byte(h.Config.SignedURLSecretKey))
	if errors.Is(err, utils.ErrLinkExpired) {
		utils.RespondError(w, http.StatusUnauthorized, "Link expired")
		return
	}
	if err != nil {
		slog.Debug("rejected image signature", "error", err)
		utils.RespondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	doc, err := h.Store.Read()
	if err != nil {
		utils.RespondInternal(w, err, "Unable to load image")
		return
	}
	image, ok := doc.UserImage(userID, imageID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Image not found")
		return
	}

	http.ServeFile(w, r, image.Path)
}

// enrichImage fills the per-request fields on a copy of the record.
func (h *ImageHandler) enrichImage(doc *database.Document, image models.UserImage) (models.UserImage, error) {
	signed, err := utils.SignImageURL(image, h.signedURLTTL(), []byte(h.Config.SignedURLSecretKey))
	if err != nil {
		return models.UserImage{}, err
	}
	image.SignedURL = signed
	image.NumCompressions = len(doc.ImageCompressions(image.ID))
	return image, nil
}

// lookupOwnedImage resolves an image id and enforces ownership, writing
// the error response itself when the lookup fails. A foreign image is an
// authorization failure, not a not-found.
func lookupOwnedImage(w http.ResponseWriter, doc *database.Document, user models.SafeUser, imageID string) (models.UserImage, bool) {
	for _, images := range doc.Images {
		if image, ok := images[imageID]; ok {
			if image.UserID != user.ID {
				utils.RespondError(w, http.StatusForbidden, "You do not own this image")
				return models.UserImage{}, false
			}
			return image, true
		}
	}
	utils.RespondError(w, http.StatusNotFound, "Image not found")
	return models.UserImage{}, false
}

// extensionFromContentType maps e.g. "image/png" to "png".
func extensionFromContentType(contentType string) string {
	contentType, _, _ = strings.Cut(contentType, ";")
	_, suffix, ok := strings.Cut(strings.TrimSpace(contentType), "/")
	if !ok {
		return ""
	}
	return strings.ToLower(suffix)
}

// displayName strips a recognized image extension from the submitted file
// name, so "vacation.png" is recorded as "vacation".
func displayName(fileName string) string {
	for _, suffix := range []string{".jpeg", ".jpg", ".png", ".gif"} {
		if strings.HasSuffix(strings.ToLower(fileName), suffix) {
			return fileName[:len(fileName)-len(suffix)]
		}
	}
	return fileName
}
