// Package registration contains the HTTP handlers for course registrations.
//
// Handlers are built with the closure / factory pattern: a factory takes the
// dependencies once at startup and returns the http.HandlerFunc that runs on
// every request.
//
//	router.HandleFunc("POST /api/registration", registration.Submit(store, files, maxMemory))
//	router.HandleFunc("GET /api/registration", registration.GetList(store))
package registration

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aanand-mishra/registration-api/internal/storage"
	"github.com/aanand-mishra/registration-api/internal/types"
	"github.com/aanand-mishra/registration-api/internal/utils/response"
)

// Messages returned to the client.
const (
	msgCreated     = "Form submitted successfully!"
	msgMissing     = "Missing required fields or files."
	msgDupAadhar   = "Aadhar number already exists. Please check and try again."
	msgDupEmail    = "Email already registered. Please use a different email."
	msgDupPhone    = "Phone number already registered. Please use a different number."
	msgServerError = "Server error occurred. Please try again later."
	msgListFailed  = "Error fetching registrations"
)

// Multipart file part names.
const (
	fieldAadharUpload = "aadharFile"
	fieldSignature    = "signatureFile"
)

// FileStore persists uploaded file parts. *upload.Store satisfies it.
type FileStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(stored string) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Submit handles POST /api/registration
//
// Request body: multipart/form-data with the personal-detail fields plus
// two file parts, aadharFile and signatureFile.
//
// Responses:
//
//	201 Created      — { "message": "Form submitted successfully!" }
//	400 Bad Request  — missing fields/files, validation or cast failure
//	409 Conflict     — email, phone, or Aadhar number already registered
//	500 Internal     — anything else
//
// ─────────────────────────────────────────────────────────────────────────────
func Submit(store storage.Storage, files FileStore, maxMemory int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("submitting a registration form")

		// ── Step 1: Parse the body ────────────────────────────────────
		// Non-multipart bodies are still parsed: they simply can never
		// carry the two files and end up in the "missing" branch below.
		err := r.ParseMultipartForm(maxMemory)
		if errors.Is(err, http.ErrNotMultipart) {
			err = r.ParseForm()
		}
		if err != nil {
			slog.Warn("cannot parse registration form", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.Text(msgMissing))
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		form := r.PostForm
		aadharPart := filePart(r.MultipartForm, fieldAadharUpload)
		signaturePart := filePart(r.MultipartForm, fieldSignature)

		// ── Step 2: Required fields and files ─────────────────────────
		if form.Get("firstName") == "" || form.Get("lastName") == "" || form.Get("email") == "" ||
			aadharPart == nil || signaturePart == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Text(msgMissing))
			return
		}

		// ── Step 3: Store the uploads ─────────────────────────────────
		aadharPath, err := files.Save(aadharPart)
		if err != nil {
			slog.Error("cannot save aadhar upload", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.Text(msgServerError))
			return
		}

		signaturePath, err := files.Save(signaturePart)
		if err != nil {
			slog.Error("cannot save signature upload", slog.String("error", err.Error()))
			discard(files, aadharPath)
			response.WriteJSON(w, http.StatusInternalServerError, response.Text(msgServerError))
			return
		}

		// ── Step 4: Persist ───────────────────────────────────────────
		in := types.RegistrationInput{
			FirstName:      form.Get("firstName"),
			LastName:       form.Get("lastName"),
			Email:          form.Get("email"),
			Phone:          form.Get("phone"),
			DateOfBirth:    form.Get("dateOfBirth"),
			Address:        form.Get("address"),
			City:           form.Get("city"),
			State:          form.Get("state"),
			Pincode:        form.Get("pincode"),
			AadharNumber:   form.Get("aadharNumber"),
			AadharFile:     aadharPath,
			SignatureFile:  signaturePath,
			AgreeTerms:     form.Get("agreeTerms") == "true",
			AgreeMarketing: form.Get("agreeMarketing") == "true",
			CourseName:     NormalizeCourseName(form["courseName"]),
		}

		rec, err := store.CreateRegistration(r.Context(), in)
		if err != nil {
			discard(files, aadharPath, signaturePath)

			status, body := classify(err)
			if status == http.StatusInternalServerError {
				slog.Error("server error", slog.String("error", err.Error()))
			} else {
				slog.Info("registration rejected",
					slog.Int("status", status),
					slog.String("reason", err.Error()))
			}
			response.WriteJSON(w, status, body)
			return
		}

		slog.Info("registration created",
			slog.String("id", rec.ID),
			slog.String("course", rec.CourseName))

		response.WriteJSON(w, http.StatusCreated, response.Text(msgCreated))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/registration
// Returns every registration, most recent first.
//
// Success response (200 OK):
//
//	{ "success": true, "registrations": [ {...}, {...} ] }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all registrations")

		registrations, err := store.GetRegistrations(r.Context())
		if err != nil {
			slog.Error("error fetching registrations", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.ListError(msgListFailed, err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.Registrations(registrations))
	}
}

// NormalizeCourseName collapses the values submitted under courseName.
// A single value is kept as sent. When the field was repeated, the first
// value that is not blank wins, or "" if every value is blank.
func NormalizeCourseName(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}

	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// classify maps a store error onto an HTTP status and body.
func classify(err error) (int, response.Message) {
	var (
		dup      *storage.DuplicateKeyError
		invalid  *storage.ValidationError
		mismatch *storage.TypeMismatchError
	)

	switch {
	case errors.As(err, &dup):
		switch dup.Field {
		case storage.FieldAadharNumber:
			return http.StatusConflict, response.Text(msgDupAadhar)
		case storage.FieldEmail:
			return http.StatusConflict, response.Text(msgDupEmail)
		case storage.FieldPhone:
			return http.StatusConflict, response.Text(msgDupPhone)
		}
		return http.StatusInternalServerError, response.Text(msgServerError)

	case errors.As(err, &invalid):
		return http.StatusBadRequest, response.ValidationFailed(invalid.FieldErrors)

	case errors.As(err, &mismatch):
		detail := mismatch.Error()
		if mismatch.Err != nil {
			detail = mismatch.Err.Error()
		}
		return http.StatusBadRequest, response.Text(
			"Invalid data format for " + mismatch.Field + ": " + detail)

	default:
		return http.StatusInternalServerError, response.Text(msgServerError)
	}
}

func filePart(form *multipart.Form, key string) *multipart.FileHeader {
	if form == nil || len(form.File[key]) == 0 {
		return nil
	}
	return form.File[key][0]
}

// discard removes uploads belonging to a rejected submission.
func discard(files FileStore, paths ...string) {
	for _, p := range paths {
		if err := files.Remove(p); err != nil {
			slog.Warn("cannot remove orphaned upload",
				slog.String("path", p),
				slog.String("error", err.Error()))
		}
	}
}
