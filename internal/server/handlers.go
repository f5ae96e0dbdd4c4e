package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openfleet/internal/review"
)

// Request bodies are explicit schemas per operation. Unknown fields
// are rejected rather than trusting payload shape at runtime.

type createReviewRequest struct {
	DocumentPath string `json:"documentPath"`
	Title        string `json:"title"`
}

type createThreadRequest struct {
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
	Body      string `json:"body"`
	Author    string `json:"author"`
}

type addReplyRequest struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

type patchThreadRequest struct {
	Resolved *bool `json:"resolved"`
}

type submitReviewRequest struct {
	Decision string `json:"decision"`
}

type documentResponse struct {
	Lines []string `json:"lines"`
	Hash  string   `json:"hash"`
}

type threadsResponse struct {
	Threads []review.Thread `json:"threads"`
}

type statusResponse struct {
	Status review.Status `json:"status"`
}

func bindStrict(c echo.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return echo.NewHTTPError(http.StatusBadRequest, "Request body is required")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return nil
}

// domainError maps store errors onto HTTP status codes. Validation
// failures are 400, unknown ids 404, everything else 500.
func domainError(err error) error {
	switch {
	case review.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Thread not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) createReview(c echo.Context) error {
	var req createReviewRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.DocumentPath) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "documentPath is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	rev, err := s.CreateReview(req.DocumentPath, req.Title)
	if err != nil {
		// Document load failures are IO errors: the review is not
		// partially created.
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, rev)
}

func (s *Server) getReview(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}
	return c.JSON(http.StatusOK, sess.store.Review())
}

// getDocument re-reads the file so agent edits on disk show up in the
// served hash. If the re-read fails the last good snapshot is served.
func (s *Server) getDocument(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	doc, err := sess.docs.Reload()
	if err != nil {
		s.log.Warn().Err(err).Msg("Document reload failed, serving last snapshot")
		doc = sess.docs.Get()
	}

	return c.JSON(http.StatusOK, documentResponse{
		Lines: doc.Lines(),
		Hash:  doc.Hash(),
	})
}

func (s *Server) listThreads(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	filter := review.Filter(c.QueryParam("filter"))
	switch filter {
	case "", review.FilterAll:
		filter = review.FilterAll
	case review.FilterPending, review.FilterResolved:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown filter "+string(filter))
	}

	return c.JSON(http.StatusOK, threadsResponse{Threads: sess.store.ListThreads(filter)})
}

func (s *Server) createThread(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	var req createThreadRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	author, err := parseAuthor(req.Author)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thread, err := sess.store.CreateThread(req.LineStart, req.LineEnd, req.Body, author)
	if err != nil {
		return domainError(err)
	}

	sess.audit.Event("Thread %s created by %s on lines %d-%d", thread.ID, thread.Author, thread.LineStart, thread.LineEnd)
	return c.JSON(http.StatusCreated, thread)
}

func (s *Server) addReply(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	var req addReplyRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	author, err := parseAuthor(req.Author)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reply, err := sess.store.AddReply(c.Param("tid"), req.Body, author)
	if err != nil {
		return domainError(err)
	}

	sess.audit.Event("Reply added to thread %s by %s", c.Param("tid"), reply.Author)
	return c.JSON(http.StatusCreated, reply)
}

func (s *Server) patchThread(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	var req patchThreadRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}
	if req.Resolved == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "resolved is required")
	}

	thread, err := sess.store.SetResolved(c.Param("tid"), *req.Resolved, review.AuthorHuman)
	if err != nil {
		return domainError(err)
	}

	if thread.Resolved {
		sess.audit.Event("Thread %s resolved by %s", thread.ID, thread.ResolvedBy)
	} else {
		sess.audit.Event("Thread %s reopened", thread.ID)
	}
	return c.JSON(http.StatusOK, thread)
}

func (s *Server) submitReview(c echo.Context) error {
	sess := s.session(c.Param("id"))
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Review not found")
	}

	var req submitReviewRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	rev, err := sess.store.SubmitReview(req.Decision)
	if err != nil {
		return domainError(err)
	}

	s.log.Info().Str("review_id", rev.ID).Str("status", string(rev.Status)).Msg("Review submitted")
	sess.audit.Event("Review submitted: %s", rev.Status)
	return c.JSON(http.StatusOK, statusResponse{Status: rev.Status})
}

func parseAuthor(raw string) (review.Author, error) {
	switch review.Author(raw) {
	case "":
		// The browser client never sends an author; agents do.
		return review.AuthorHuman, nil
	case review.AuthorHuman:
		return review.AuthorHuman, nil
	case review.AuthorAgent:
		return review.AuthorAgent, nil
	default:
		return "", errors.New("author must be \"human\" or \"agent\"")
	}
}
