package stories

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/snapstory/snapstory-service/internal/http/middleware"
	storysvc "github.com/snapstory/snapstory-service/internal/services/stories"
	"github.com/snapstory/snapstory-service/internal/types"
	"github.com/snapstory/snapstory-service/internal/utils/response"
)

// multipartMemory caps how much of a parsed upload is held in memory;
// larger parts spill to temp files.
const multipartMemory = 8 << 20

// audioFormField is the multipart field name carrying the narration file.
const audioFormField = "audio"

// Service is the story lifecycle consumed by these handlers.
type Service interface {
	List(ctx context.Context, requesterID string) ([]types.Story, error)
	Create(ctx context.Context, requesterID string, req types.StoryCreateRequest) (types.Story, error)
	Get(ctx context.Context, id, requesterID string) (types.Story, error)
	Update(ctx context.Context, id, requesterID string, req types.StoryUpdateRequest) (types.Story, error)
	Delete(ctx context.Context, id, requesterID string) error
	UploadAudio(ctx context.Context, id, requesterID string, upload *storysvc.AudioUpload) (types.Story, error)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// validation and upload-gate failures to 400, non-owner to 403, missing
// story to 404, anything else to a logged 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
		return
	}

	var bre *storysvc.BadRequestError
	if errors.As(err, &bre) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(bre))
		return
	}

	if errors.Is(err, storysvc.ErrStoryNotFound) {
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(storysvc.ErrStoryNotFound))
		return
	}

	if errors.Is(err, storysvc.ErrNotAuthor) {
		response.WriteJSON(w, http.StatusForbidden, response.GeneralError(storysvc.ErrNotAuthor))
		return
	}

	slog.Error("story operation failed", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
		errors.New("internal server error")))
}

// List handles the owner's story list
// @Summary List own stories
// @Description List stories authored by the authenticated user, newest first
// @Tags stories
// @Produce json
// @Success 200 {object} response.Response "Stories fetched successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /stories [get]
func List(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		stories, err := service.List(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOKCount(stories, len(stories)))
	}
}

// Create handles creating a new story
// @Summary Create a new story
// @Description Create a new story; the author is always the authenticated user
// @Tags stories
// @Accept json
// @Produce json
// @Param story body types.StoryCreateRequest true "Story fields"
// @Success 201 {object} response.Response "Story created"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /stories [post]
func Create(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req types.StoryCreateRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		story, err := service.Create(r.Context(), userID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		slog.Info("Story created", slog.String("story_id", story.ID), slog.String("author_id", userID))

		response.WriteJSON(w, http.StatusCreated, response.RequestOK(story))
	}
}

// Get handles fetching a single owned story
// @Summary Get one of the user's stories
// @Tags stories
// @Produce json
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response "Story fetched"
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id} [get]
func Get(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		story, err := service.Get(r.Context(), r.PathValue("id"), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK(story))
	}
}

// Update handles updating an owned story
// @Summary Update a story
// @Description Update fields of a story owned by the authenticated user
// @Tags stories
// @Accept json
// @Produce json
// @Param id path string true "Story ID"
// @Param story body types.StoryUpdateRequest true "Changed fields"
// @Success 200 {object} response.Response "Story updated"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 403 {object} response.Response "Not the author"
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id} [put]
func Update(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req types.StoryUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		story, err := service.Update(r.Context(), r.PathValue("id"), userID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK(story))
	}
}

// Delete handles deleting an owned story
// @Summary Delete a story
// @Tags stories
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response "Story deleted"
// @Failure 403 {object} response.Response "Not the author"
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id} [delete]
func Delete(service Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if err := service.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK(struct{}{}))
	}
}

// UploadAudio handles attaching an audio narration to an owned story
// @Summary Upload story narration
// @Description Attach an audio narration (MP3/WAV/OGG/M4A, max 25 MB) and switch the story to audio reading mode
// @Tags stories
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Story ID"
// @Param audio formData file true "Audio file"
// @Success 200 {object} response.Response "Narration attached"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 403 {object} response.Response "Not the author"
// @Failure 404 {object} response.Response "Story not found"
// @Security BearerAuth
// @Router /stories/{id}/audio [put]
func UploadAudio(service Service, maxUploadSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		// First size layer: cut the connection off a little above the
		// ceiling so oversized bodies never buffer fully. The service
		// re-checks the declared part size against the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+multipartMemory)

		var upload *storysvc.AudioUpload
		if err := r.ParseMultipartForm(multipartMemory); err == nil {
			file, header, ferr := r.FormFile(audioFormField)
			if ferr == nil {
				defer file.Close()
				upload = &storysvc.AudioUpload{
					Filename:    header.Filename,
					ContentType: header.Header.Get("Content-Type"),
					Size:        header.Size,
					Content:     file,
				}
			}
		} else if errors.As(err, new(*http.MaxBytesError)) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("uploaded file is too large")))
			return
		}

		// A missing or malformed part is handed to the service as "no
		// file": existence and ownership are still checked first, so a
		// non-owner gets 403 rather than a hint about the upload.
		story, err := service.UploadAudio(r.Context(), r.PathValue("id"), userID, upload)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK(story))
	}
}
