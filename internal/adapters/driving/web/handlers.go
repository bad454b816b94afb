package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/bidwright/internal/core/domain"
)

// agentView is one entry of the agent sidebar.
type agentView struct {
	Label    string
	Activity string
	Status   domain.StageStatus
	Icon     string
}

// formatView is one download link.
type formatView struct {
	Name        string
	Description string
}

// indexData is the model of the main page.
type indexData struct {
	Run              domain.Run
	Agents           []agentView
	Formats          []formatView
	Characters       int
	Accept           string
	Error            string
	PasswordRequired bool
}

type loginData struct {
	Error string
}

var statusIcons = map[domain.StageStatus]string{
	domain.StatusPending:  "⏳",
	domain.StatusWorking:  "🔄",
	domain.StatusComplete: "✅",
	domain.StatusFailed:   "❌",
}

func (s *Server) index(c echo.Context) error {
	run, err := s.ports.Pipeline.Load(c.Request().Context(), s.sessionID(c))
	if err != nil {
		return err
	}
	return s.renderIndex(c, http.StatusOK, run, nil)
}

func (s *Server) upload(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := s.sessionID(c)

	header, err := c.FormFile("document")
	if err != nil {
		return s.fail(c, sessionID, fmt.Errorf("%w: choose a document to upload", domain.ErrInvalidInput))
	}
	file, err := header.Open()
	if err != nil {
		return s.fail(c, sessionID, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err))
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return s.fail(c, sessionID, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err))
	}

	if _, err := s.ports.Pipeline.Upload(ctx, sessionID, header.Filename, header.Header.Get(echo.HeaderContentType), content); err != nil {
		return s.fail(c, sessionID, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// run drives the session to the end. Stage calls outlive a dropped
// connection so a closed tab does not halt the run.
func (s *Server) run(c echo.Context) error {
	sessionID := s.sessionID(c)
	if _, err := s.ports.Pipeline.RunToEnd(context.WithoutCancel(c.Request().Context()), sessionID); err != nil {
		return s.fail(c, sessionID, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// step runs one agent, starting the run first when it is idle.
func (s *Server) step(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	sessionID := s.sessionID(c)

	run, err := s.ports.Pipeline.Load(ctx, sessionID)
	if err != nil {
		return s.fail(c, sessionID, err)
	}
	if run.Stage == domain.StageIdle {
		if _, err := s.ports.Pipeline.Start(ctx, sessionID); err != nil {
			return s.fail(c, sessionID, err)
		}
	}
	if _, err := s.ports.Pipeline.Advance(ctx, sessionID); err != nil {
		return s.fail(c, sessionID, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) reset(c echo.Context) error {
	sessionID := s.sessionID(c)
	if _, err := s.ports.Pipeline.Reset(c.Request().Context(), sessionID); err != nil {
		return s.fail(c, sessionID, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// export sends one format as an attachment. A generation failure is shown
// inline and leaves the run untouched.
func (s *Server) export(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := s.sessionID(c)

	format, err := domain.ParseExportFormat(c.Param("format"))
	if err != nil {
		return s.fail(c, sessionID, err)
	}
	run, err := s.ports.Pipeline.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	artifact, err := s.ports.Export.Export(ctx, run, format)
	if err != nil {
		return s.renderIndex(c, statusFor(err), run, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	return c.Blob(http.StatusOK, artifact.MIMEType, artifact.Content)
}

// fail re-renders the page for the session with the error shown inline.
func (s *Server) fail(c echo.Context, sessionID string, cause error) error {
	run, err := s.ports.Pipeline.Load(context.WithoutCancel(c.Request().Context()), sessionID)
	if err != nil {
		return cause
	}
	return s.renderIndex(c, statusFor(cause), run, cause)
}

func (s *Server) renderIndex(c echo.Context, code int, run domain.Run, cause error) error {
	data := indexData{
		Run:              run,
		Characters:       len([]rune(run.RawText)),
		Accept:           strings.Join(s.ports.Extensions, ","),
		PasswordRequired: s.cfg.AccessPassword != "",
	}
	if cause != nil {
		data.Error = userMessage(cause)
	}
	for _, stage := range domain.AgentStages {
		status := run.StatusOf(stage)
		data.Agents = append(data.Agents, agentView{
			Label:    stage.Label(),
			Activity: stage.Activity(),
			Status:   status,
			Icon:     statusIcons[status],
		})
	}
	for _, f := range s.ports.Export.Formats() {
		data.Formats = append(data.Formats, formatView{Name: f.String(), Description: f.Description()})
	}
	return s.render(c, code, "index", data)
}

func (s *Server) render(c echo.Context, code int, name string, data any) error {
	var buf strings.Builder
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("web: render %s: %w", name, err)
	}
	return c.HTML(code, buf.String())
}
