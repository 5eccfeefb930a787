package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// replyError sends the error envelope built from the given details.
func (api *APIHandler) replyError(w http.ResponseWriter, r *http.Request, status int, message string, errs []string) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	errResp := NewAPIError(requestID, status, message, errs)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send error response", zap.Error(err))
	}
}

// reply sends the success envelope.
func (api *APIHandler) reply(w http.ResponseWriter, r *http.Request, status int, message string, total *int, data interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := GenericResponse(requestID, status, message, total, data)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// lookupBook reads the book id from the path and fetches the book. It replies
// to the client and returns false when the id is invalid or the book is missing.
func (api *APIHandler) lookupBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (Book, bool) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("book id provided is not valid", zap.String("book.id", ps.ByName("id")))
		api.replyError(w, r, http.StatusBadRequest, ErrInvalidBookID.Error(), nil)
		return Book{}, false
	}

	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist", zap.Int64("book.id", id))
		api.replyError(w, r, http.StatusNotFound, ErrBookNotFound.Error(), nil)
		return Book{}, false
	}
	if err != nil {
		logger.Error("failed to get book", zap.Int64("book.id", id), zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to get the book", nil)
		return Book{}, false
	}
	return book, true
}

// CreateBook godoc
// @Summary      Add a new book
// @Tags         books
// @Accept       json
// @Produce      json
// @Success      201  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Router       /books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	payload, err := DecodeBookRequestBody(r)
	if err != nil {
		logger.Error("failed to decode book payload", zap.Error(err))
		api.replyError(w, r, http.StatusBadRequest, ErrInvalidPayload.Error(), nil)
		return
	}

	book, err := api.bookService.Add(r.Context(), payload)
	var verr *ValidationError
	if errors.As(err, &verr) {
		logger.Error("invalid book data", zap.Strings("errors", verr.Violations()))
		api.replyError(w, r, http.StatusBadRequest, "invalid book data", verr.Violations())
		return
	}
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to create the book", nil)
		return
	}

	logger.Info("success to create book", zap.Int64("book.id", book.ID))
	api.reply(w, r, http.StatusCreated, "Book created successfully.", nil, book)
}

// GetAllBooks godoc
// @Summary      List all books
// @Tags         books
// @Produce      json
// @Success      200  {object}  APIResponse
// @Router       /books [get]
//
//nolint:bodyclose
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	// the listing may take longer than a regular request to be written.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
		logger.Debug("http: failed to update the write deadline", zap.Error(err))
	}

	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to get all books", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to get all books", nil)
		return
	}
	logger.Info("success to get all books", zap.Int("books.total", len(books)))
	total := len(books)
	api.reply(w, r, http.StatusOK, "All books fetched successfully.", &total, books)
}

// GetOneBook godoc
// @Summary      Get a book by id
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Router       /books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book", zap.Int64("book.id", book.ID))
	api.reply(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Router       /books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}

	err := api.bookService.Delete(r.Context(), book.ID)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist", zap.Int64("book.id", book.ID))
		api.replyError(w, r, http.StatusNotFound, ErrBookNotFound.Error(), nil)
		return
	}
	if err != nil {
		logger.Error("failed to delete book", zap.Int64("book.id", book.ID), zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to delete the book", nil)
		return
	}
	logger.Info("success to delete book", zap.Int64("book.id", book.ID))
	api.reply(w, r, http.StatusOK, "Book deleted successfully.", nil, book)
}

// UpdateBook godoc
// @Summary      Update some fields of a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id   path      int  true  "Book ID"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}

	payload, err := DecodeBookRequestBody(r)
	if err != nil {
		logger.Error("failed to decode book payload", zap.Int64("book.id", book.ID), zap.Error(err))
		api.replyError(w, r, http.StatusBadRequest, ErrInvalidPayload.Error(), nil)
		return
	}

	book, err = api.bookService.Update(r.Context(), book.ID, payload)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Error("invalid book data", zap.Strings("errors", verr.Violations()))
		api.replyError(w, r, http.StatusBadRequest, "invalid book data", verr.Violations())
		return
	case errors.Is(err, ErrBookNotFound):
		logger.Error("book does not exist", zap.String("book.id", ps.ByName("id")))
		api.replyError(w, r, http.StatusNotFound, ErrBookNotFound.Error(), nil)
		return
	case err != nil:
		logger.Error("failed to update book", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to update the book", nil)
		return
	}
	logger.Info("success to update book", zap.Int64("book.id", book.ID))
	api.reply(w, r, http.StatusOK, "Book updated successfully.", nil, book)
}
