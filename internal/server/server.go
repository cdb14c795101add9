// Package server implements the classroom service's HTTP surface: the
// leaderboard and submission-result pages, the submit pipeline, and
// cookie-based identity issuance. The submission pipeline (id assignment,
// build-and-measure, leaderboard insertion) is serialized under a single
// mutex; admission review runs before the lock is taken. Per the
// concurrency model, only one compile is expected to be
// in flight at a time because the build step invokes a heavyweight
// external toolchain.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/classbench/perfclass/internal/admission"
	"github.com/classbench/perfclass/internal/identity"
	"github.com/classbench/perfclass/internal/leaderboard"
	"github.com/classbench/perfclass/internal/runner"
	"github.com/classbench/perfclass/internal/store"
	"github.com/classbench/perfclass/internal/task"
)

// Config describes everything a Server needs to start.
type Config struct {
	Host string
	Port int
	Root string // workspace root containing submissions/, leaderboard/, runtime/

	Task   *task.Spec
	Store  *store.Store
	Board  *leaderboard.Board
	Public bool
}

// Server is the classroom HTTP surface.
type Server struct {
	cfg Config
	srv *http.Server
	tpl *templateCache

	mu sync.Mutex // serializes the submit pipeline
}

// New constructs a Server. It loads runtime/templates/ eagerly so a
// missing template is a startup failure, not a first-request surprise.
func New(cfg Config) (*Server, error) {
	tpl, err := newTemplateCache(filepath.Join(cfg.Root, "runtime", "templates"))
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"leaderboard.html", "submission_result.html"} {
		tpl.mu.RLock()
		_, ok := tpl.templates[name]
		tpl.mu.RUnlock()
		if !ok {
			tpl.close()
			return nil, fmt.Errorf("template %s not found in %s", name, tpl.dir)
		}
	}
	return &Server{cfg: cfg, tpl: tpl}, nil
}

// Start begins listening and returns once the listener is bound; serving
// continues on a background goroutine.
func (s *Server) Start() (string, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleLeaderboard)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /submit", s.handleSubmit)
	mux.HandleFunc("GET /view_submission", s.handleViewSubmission)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}

	s.srv = &http.Server{Handler: mux}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	slog.Info("server started", "addr", ln.Addr().String(), "task", s.cfg.Task.Name, "public", s.cfg.Public)
	return ln.Addr().String(), nil
}

// Stop gracefully shuts down the HTTP server and the template watcher.
func (s *Server) Stop(ctx context.Context) error {
	s.tpl.close()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// --- identity plumbing -----------------------------------------------------

func (s *Server) ensureUserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(identity.CookieName); err == nil && identity.IsValidUserID(c.Value) {
		return c.Value
	}
	uid, err := identity.NewUserID()
	if err != nil {
		slog.Error("failed to mint user id", "error", err)
		uid = "00000000"
	}
	http.SetCookie(w, &http.Cookie{
		Name:  identity.CookieName,
		Value: uid,
		Path:  "/",
	})
	return uid
}

func (s *Server) cookieUserID(r *http.Request) (string, bool) {
	c, err := r.Cookie(identity.CookieName)
	if err != nil || !identity.IsValidUserID(c.Value) {
		return "", false
	}
	return c.Value, true
}

// --- GET /leaderboard -------------------------------------------------------

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID := s.ensureUserID(w, r)

	rows := s.cfg.Board.ListForDisplay()
	var b strings.Builder
	for _, row := range rows {
		linkable := s.cfg.Public || row.UserID == userID
		b.WriteString(leaderboardRowHTML(row, userID, linkable))
	}

	html, err := s.tpl.render("leaderboard.html", map[string]string{
		"${TASK}":              s.cfg.Task.Name,
		"${LEADERBOARD_ROWS}":  b.String(),
	})
	if err != nil {
		http.Error(w, "template render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(html))
}

func leaderboardRowHTML(row leaderboard.Row, viewerID string, linkable bool) string {
	name := identity.DisplayName(row.UserID, row.Task)
	color := identity.RowColor(row.UserID, row.Task)
	mine := ""
	if row.UserID == viewerID {
		mine = " (you)"
	}
	userRank := ""
	if row.FirstOfUser {
		userRank = strconv.Itoa(row.UserRank)
	}

	idCell := row.SubmissionID
	if linkable {
		idCell = fmt.Sprintf(`<a href="/view_submission?id=%s">%s</a>`, row.SubmissionID, row.SubmissionID)
	}

	return fmt.Sprintf(
		`<tr style="background-color:%s"><td>%d</td><td>%s</td><td>%s%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`+"\n",
		color, row.Rank, userRank, name, mine, idCell, formatTime(row.BestTime), cyclesDisplay(row.CyclesPerCall))
}

// --- POST /submit -----------------------------------------------------------

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.cookieUserID(r)
	if !ok {
		writeError(w, ErrBadRequest, "Invalid form submission.")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, ErrBadRequest, "Invalid form submission.")
		return
	}
	code := r.FormValue("code")
	flags := r.FormValue("flags")
	authorRaw := r.FormValue("author")
	if code == "" || flags == "" || authorRaw == "" {
		writeError(w, ErrBadRequest, "Invalid form submission.")
		return
	}
	if !store.ValidAuthor(authorRaw) {
		writeError(w, ErrBadRequest, "Invalid form submission.")
		return
	}

	switch admission.Review(code, flags, s.cfg.Task) {
	case admission.RejectedCode:
		writeError(w, ErrRejectedCode, "Code does not comply with the rules!")
		return
	case admission.RejectedFlags:
		writeError(w, ErrRejectedFlags, "Disallowed compiler flags.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := store.NextID()
	sub := &store.Submission{
		ID:          id,
		Task:        s.cfg.Task.Name,
		UserID:      userID,
		Code:        code,
		Flags:       flags,
		Author:      store.Author(authorRaw),
		IP:          clientIP(r),
		SubmittedAt: time.Now(),
	}

	status, err := runner.Run(r.Context(), runner.Request{
		Task:       s.cfg.Task,
		Store:      s.cfg.Store,
		Submission: sub,
		ScriptPath: filepath.Join(s.cfg.Root, "runtime", "compile.sh"),
	})
	if err != nil {
		slog.Error("build-and-measure run failed", "submission", id, "error", err)
	}

	if status == store.StatusPass {
		loaded, loadErr := s.cfg.Store.Load(s.cfg.Task.Name, id)
		if loadErr == nil {
			s.cfg.Board.Insert(leaderboard.Entry{
				Task:          s.cfg.Task.Name,
				UserID:        userID,
				SubmissionID:  id,
				BestTime:      loaded.Result.BestTime,
				CyclesPerCall: loaded.Result.CyclesPerCall,
				Author:        sub.Author,
			})
		} else {
			slog.Error("failed to reload passing submission for leaderboard insert", "submission", id, "error", loadErr)
		}
	}

	http.Redirect(w, r, "/view_submission?id="+id, http.StatusSeeOther)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- GET /view_submission ---------------------------------------------------

func (s *Server) handleViewSubmission(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, ErrNotFound, "submission not found")
		return
	}

	sub, err := s.cfg.Store.Load(s.cfg.Task.Name, id)
	if err != nil {
		writeError(w, ErrNotFound, "submission not found")
		return
	}

	if !s.cfg.Public {
		viewerID, ok := s.cookieUserID(r)
		if !ok || viewerID != sub.UserID {
			writeError(w, ErrForbidden, "forbidden")
			return
		}
	}

	html, err := s.tpl.render("submission_result.html", map[string]string{
		"${TASK}":                     s.cfg.Task.Name,
		"${USER_ID}":                  sub.UserID,
		"${SUBMISSION_ID}":            sub.ID,
		"${COMPILER_FLAGS}":           sub.Flags,
		"${COMPILE_STATUS}":           statusBadge(sub.Result.CompileSuccessful, compileLabel(sub.Result.Status)),
		"${CORRECTNESS_TEST}":         statusBadge(sub.Result.CorrectnessPassed, correctnessLabel(sub.Result.Status)),
		"${BENCHMARK_BEST_TIME}":      formatTime(sub.Result.BestTime),
		"${BENCHMARK_CYCLES_PER_CALL}": cyclesDisplay(sub.Result.CyclesPerCall),
		"${AI_GENERATED}":             string(sub.Author),
		"${INPUT_CODE}":               pre(sub.Result.InputCodeHighlighted),
		"${COMPILER_OUTPUT}":          pre(sub.Result.CompileStderr),
		"${DISASSEMBLY}":              pre(sub.Result.Disassembly),
		"${DISASSEMBLY_WITH_SOURCE}":  pre(sub.Result.DisassemblyWithSrc),
		"${BENCHMARK_OUTPUT}":         pre(sub.Result.BenchmarkOutput),
	})
	if err != nil {
		http.Error(w, "template render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(html))
}

func compileLabel(status store.Status) string {
	if status == store.StatusUnknown {
		return "Unknown"
	}
	if status == store.StatusPass || status == store.StatusCorrectnessFailure {
		return "Success"
	}
	return "Failed"
}

func correctnessLabel(status store.Status) string {
	if status == store.StatusPass {
		return "Success"
	}
	return "Failed"
}
