package server

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"thaitanloi365/picture-protector/facebluring"
	"thaitanloi365/picture-protector/internal/log"
	"thaitanloi365/picture-protector/protector"
	"thaitanloi365/picture-protector/share"
)

const (
	maxPreviewSide = 4096
	maxQRSize      = 2048
)

type PhotoHandler struct {
	log       *logrus.Logger
	validator *validator.Validate
	store     *protector.Store
	sharer    protector.Sharer
	errors    *ErrorHandler
	maxUpload int64
	timeout   time.Duration
	quality   int
}

func NewPhotoHandler(
	log *logrus.Logger,
	validator *validator.Validate,
	store *protector.Store,
	sharer protector.Sharer,
	maxUpload int64,
	timeout time.Duration,
	quality int,
) *PhotoHandler {
	return &PhotoHandler{
		log:       log,
		validator: validator,
		store:     store,
		sharer:    sharer,
		errors:    NewErrorHandler(log),
		maxUpload: maxUpload,
		timeout:   timeout,
		quality:   quality,
	}
}

func (h *PhotoHandler) Start(srv fiber.Router) {
	photos := srv.Group("/photos")
	photos.Post("", h.Upload)
	photos.Get("/:id", h.Get)
	photos.Delete("/:id", h.Delete)
	photos.Post("/:id/detect", h.Detect)
	photos.Put("/:id/faces", h.SetAll)
	photos.Patch("/:id/faces/:index", h.UpdateFace)
	photos.Post("/:id/tap", h.Tap)
	photos.Get("/:id/render", h.Render)
	photos.Get("/:id/preview", h.Preview)
	photos.Post("/:id/share", h.Share)
	photos.Get("/:id/share/qr", h.ShareQR)
}

func (h *PhotoHandler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := log.ContextWithRequestID(c.UserContext(), getRequestID(c))
	return context.WithTimeout(ctx, h.timeout)
}

func (h *PhotoHandler) session(c *fiber.Ctx) (*protector.Session, error) {
	return h.store.Get(c.Params("id"))
}

func (h *PhotoHandler) Upload(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	file, err := c.FormFile("image")
	if err != nil {
		return h.errors.Handle(c, ErrNoFile, "form_file")
	}
	if file.Size > h.maxUpload {
		return h.errors.Handle(c, ErrFileTooLarge, "validate_image_file")
	}
	if !strings.HasPrefix(file.Header.Get(fiber.HeaderContentType), "image/") {
		return h.errors.Handle(c, ErrInvalidFileType, "validate_image_file")
	}

	content, err := file.Open()
	if err != nil {
		return h.errors.Handle(c, err, "open_file")
	}
	defer content.Close()

	sess := h.store.Create()
	snap, err := sess.Import(ctx, file.Filename, content)
	if err != nil {
		_ = h.store.Delete(sess.ID())
		return h.errors.Handle(c, err, "import")
	}

	log.WithRequestID(ctx).WithFields(log.Fields{
		"session": snap.ID,
		"file":    file.Filename,
		"width":   snap.Width,
		"height":  snap.Height,
		"faces":   len(snap.Faces),
	}).Info("Photo imported")

	return h.errors.HandleSuccess(c, fiber.StatusCreated, PhotoResponse{Data: snap})
}

func (h *PhotoHandler) Get(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}
	return h.errors.HandleSuccess(c, fiber.StatusOK, PhotoResponse{Data: sess.Snapshot()})
}

func (h *PhotoHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("id")); err != nil {
		return h.errors.Handle(c, err, "delete_session")
	}
	return h.errors.HandleSuccess(c, fiber.StatusNoContent, nil)
}

func (h *PhotoHandler) Detect(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	faces, err := sess.Detect(ctx)
	if err != nil {
		return h.errors.Handle(c, err, "detect")
	}
	return h.errors.HandleSuccess(c, fiber.StatusOK, FacesResponse{Faces: faces})
}

func (h *PhotoHandler) SetAll(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	var req SetAllRequest
	if err := c.BodyParser(&req); err != nil {
		return h.errors.HandleValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.errors.HandleValidationError(c, err)
	}

	sess.SetAll(*req.Blur)
	return h.errors.HandleSuccess(c, fiber.StatusOK, FacesResponse{Faces: sess.Faces()})
}

// UpdateFace sets the blur flag of one face, or toggles it when the body
// carries no flag.
func (h *PhotoHandler) UpdateFace(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	index, err := c.ParamsInt("index")
	if err != nil {
		return h.errors.HandleValidationError(c, err)
	}

	var req FaceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return h.errors.HandleValidationError(c, err)
		}
	}

	var face facebluring.Face
	if req.Blur == nil {
		face, err = sess.Toggle(index)
	} else {
		face, err = sess.SetBlur(index, *req.Blur)
	}
	if err != nil {
		return h.errors.Handle(c, err, "update_face")
	}

	return h.errors.HandleSuccess(c, fiber.StatusOK, FaceResponse{Index: index, Face: face})
}

func (h *PhotoHandler) Tap(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	var req TapRequest
	if err := c.BodyParser(&req); err != nil {
		return h.errors.HandleValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return h.errors.HandleValidationError(c, err)
	}

	index, face, err := sess.Tap(
		facebluring.Point{X: req.X, Y: req.Y},
		facebluring.Size{W: req.ViewWidth, H: req.ViewHeight},
	)
	if err != nil {
		return h.errors.Handle(c, err, "tap")
	}

	return h.errors.HandleSuccess(c, fiber.StatusOK, FaceResponse{Index: index, Face: face})
}

func (h *PhotoHandler) Render(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	format, err := imaging.FormatFromExtension(c.Query("format", "jpeg"))
	if err != nil {
		return h.errors.Handle(c, ErrInvalidFormat, "render")
	}

	img, err := sess.Render()
	if err != nil {
		return h.errors.Handle(c, err, "render")
	}

	var buf bytes.Buffer
	if err := facebluring.Encode(&buf, img, format, h.quality); err != nil {
		return h.errors.Handle(c, err, "encode")
	}

	c.Set(fiber.HeaderContentType, facebluring.ContentType(format))
	return c.Send(buf.Bytes())
}

func (h *PhotoHandler) Preview(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	width, height := c.QueryInt("width", 0), c.QueryInt("height", 0)
	if width < 0 || height < 0 || width > maxPreviewSide || height > maxPreviewSide {
		return h.errors.Handle(c, ErrInvalidPreviewSize, "preview")
	}

	img, err := sess.Preview(facebluring.Size{W: float64(width), H: float64(height)})
	if err != nil {
		return h.errors.Handle(c, err, "preview")
	}

	var buf bytes.Buffer
	if err := facebluring.Encode(&buf, img, imaging.PNG, h.quality); err != nil {
		return h.errors.Handle(c, err, "encode")
	}

	c.Set(fiber.HeaderContentType, facebluring.ContentType(imaging.PNG))
	return c.Send(buf.Bytes())
}

func (h *PhotoHandler) Share(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	format, err := imaging.FormatFromExtension(c.Query("format", "jpeg"))
	if err != nil {
		return h.errors.Handle(c, ErrInvalidFormat, "share")
	}

	location, err := sess.Share(ctx, h.sharer, format)
	if err != nil {
		return h.errors.Handle(c, err, "share")
	}

	log.WithRequestID(ctx).WithFields(log.Fields{
		"session":  sess.ID(),
		"location": location,
	}).Info("Photo shared")

	return h.errors.HandleSuccess(c, fiber.StatusOK, ShareResponse{Location: location})
}

func (h *PhotoHandler) ShareQR(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return h.errors.Handle(c, err, "get_session")
	}

	location, err := sess.Location()
	if err != nil {
		return h.errors.Handle(c, err, "share_qr")
	}

	size := c.QueryInt("size", 256)
	if size < 1 || size > maxQRSize {
		return h.errors.Handle(c, ErrInvalidQRSize, "share_qr")
	}

	png, err := share.QRCode(location, size)
	if err != nil {
		return h.errors.Handle(c, err, "share_qr")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
