package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnold/productivityhub-api/internal/models"
)

// noteInput is the note body, sent either as multipart form (with files) or JSON.
type noteInput struct {
	UserID  string   `json:"userId"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Subject string   `json:"subject"`
	Tags    []string `json:"tags"`
}

func (h *Handler) GetNotes(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	q := h.db.WithContext(c.UserContext()).Preload("Attachments").Where("user_id = ?", owner)
	if subject := strings.TrimSpace(c.Query("subject")); subject != "" {
		q = q.Where("subject = ?", subject)
	}

	notes := []models.Note{}
	if err := q.Order("updated_at DESC").Find(&notes).Error; err != nil {
		h.log.Error("list notes", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to fetch notes")
	}
	return c.JSON(notes)
}

func (h *Handler) CreateNote(c *fiber.Ctx) error {
	in, files, err := parseNoteInput(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		return badRequest(c, "Title and content are required")
	}
	if msg := h.checkUploads(files); msg != "" {
		return badRequest(c, msg)
	}

	owner, ok := requestOwner(c, in.UserID)
	if !ok {
		return unauthorized(c)
	}

	attachments, err := h.saveAttachments(c, files)
	if err != nil {
		h.log.Error("save attachments", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to save attachments")
	}

	note := models.Note{
		UserID:      owner,
		Title:       in.Title,
		Content:     in.Content,
		Subject:     strings.TrimSpace(in.Subject),
		Tags:        in.Tags,
		Attachments: attachments,
	}
	if note.Subject == "" {
		note.Subject = models.DefaultSubject
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	if err := h.db.WithContext(c.UserContext()).Create(&note).Error; err != nil {
		h.removeFiles(attachments)
		h.log.Error("create note", zap.String("user_id", owner), zap.Error(err))
		return internalError(c, "Failed to create note")
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// UpdateNote replaces the non-empty fields and appends any uploaded files.
func (h *Handler) UpdateNote(c *fiber.Ctx) error {
	note, err := h.loadNote(c)
	if err != nil {
		return err
	}

	in, files, err := parseNoteInput(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := h.checkUploads(files); msg != "" {
		return badRequest(c, msg)
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		note.Title = title
	}
	if in.Content != "" {
		note.Content = in.Content
	}
	if subject := strings.TrimSpace(in.Subject); subject != "" {
		note.Subject = subject
	}
	if len(in.Tags) > 0 {
		note.Tags = in.Tags
	}

	added, err := h.saveAttachments(c, files)
	if err != nil {
		h.log.Error("save attachments", zap.String("note_id", note.ID.String()), zap.Error(err))
		return internalError(c, "Failed to save attachments")
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(&note).Error; err != nil {
			return err
		}
		for i := range added {
			added[i].NoteID = note.ID
		}
		if len(added) > 0 {
			return tx.Create(&added).Error
		}
		return nil
	})
	if err != nil {
		h.removeFiles(added)
		h.log.Error("update note", zap.String("note_id", note.ID.String()), zap.Error(err))
		return internalError(c, "Failed to update note")
	}

	note.Attachments = append(note.Attachments, added...)
	return c.JSON(note)
}

// DeleteNote removes the note, its session links and its attachment files.
func (h *Handler) DeleteNote(c *fiber.Ctx) error {
	note, err := h.loadNote(c)
	if err != nil {
		return err
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM session_notes WHERE note_id = ?", note.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id = ?", note.ID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Note{}, "id = ?", note.ID).Error
	})
	if err != nil {
		h.log.Error("delete note", zap.String("note_id", note.ID.String()), zap.Error(err))
		return internalError(c, "Failed to delete note")
	}

	h.removeFiles(note.Attachments)
	return c.JSON(fiber.Map{"message": "Note deleted"})
}

var errNoteNotFound = fiber.NewError(fiber.StatusNotFound, "Note not found")

func (h *Handler) loadNote(c *fiber.Ctx) (models.Note, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Note{}, errNoteNotFound
	}

	var note models.Note
	if err := h.db.WithContext(c.UserContext()).Preload("Attachments").First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Note{}, errNoteNotFound
		}
		h.log.Error("get note", zap.String("note_id", id.String()), zap.Error(err))
		return models.Note{}, fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch note")
	}
	if !canAccess(c, note.UserID) {
		return models.Note{}, errNoteNotFound
	}
	return note, nil
}

func parseNoteInput(c *fiber.Ctx) (noteInput, []*multipart.FileHeader, error) {
	var in noteInput
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		err := c.BodyParser(&in)
		return in, nil, err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, err
	}
	in.UserID = firstValue(form.Value["userId"])
	in.Title = firstValue(form.Value["title"])
	in.Content = firstValue(form.Value["content"])
	in.Subject = firstValue(form.Value["subject"])
	in.Tags = parseTags(form.Value["tags"])
	return in, form.File["files"], nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// parseTags accepts a JSON array string or repeated form values.
func parseTags(values []string) []string {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(values[0]), &decoded); err == nil {
			values = decoded
		}
	}
	tags := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			tags = append(tags, v)
		}
	}
	return tags
}

func (h *Handler) checkUploads(files []*multipart.FileHeader) string {
	if h.maxUpload <= 0 {
		return ""
	}
	for _, f := range files {
		if f.Size > h.maxUpload {
			return fmt.Sprintf("%s exceeds the %d MB upload limit", f.Filename, h.maxUpload>>20)
		}
	}
	return ""
}

// saveAttachments stores each upload under a fresh uuid name that keeps the
// original extension. On failure nothing is left on disk.
func (h *Handler) saveAttachments(c *fiber.Ctx, files []*multipart.FileHeader) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(h.uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	saved := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		filename := uuid.New().String() + ext
		if err := c.SaveFile(f, filepath.Join(h.uploadsDir, filename)); err != nil {
			h.removeFiles(saved)
			return nil, fmt.Errorf("save %s: %w", f.Filename, err)
		}
		saved = append(saved, models.Attachment{
			Filename:     filename,
			OriginalName: f.Filename,
			URL:          "/uploads/" + filename,
			MimeType:     f.Header.Get(fiber.HeaderContentType),
			Size:         f.Size,
		})
	}
	return saved, nil
}

func (h *Handler) removeFiles(attachments []models.Attachment) {
	for _, a := range attachments {
		if err := os.Remove(filepath.Join(h.uploadsDir, a.Filename)); err != nil && !os.IsNotExist(err) {
			h.log.Warn("remove attachment", zap.String("file", a.Filename), zap.Error(err))
		}
	}
}
