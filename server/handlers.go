package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
	LeagueID  string `json:"league_id"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	Cookie    string `json:"cookie"`
}

type SessionResponse struct {
	ID       string         `json:"id"`
	LeagueID string         `json:"league_id"`
	Team     contractx.Team `json:"team"`
	Turns    int            `json:"turns"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type TurnResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// SessionHandler serves the per-user coach sessions.
type SessionHandler struct {
	manager *sessionx.Manager
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	s, err := h.manager.Create(c.Request.Context(), sessionx.Options{
		SessionID: req.SessionID,
		LeagueID:  req.LeagueID,
		TeamID:    req.TeamID,
		TeamName:  req.TeamName,
		Cookie:    req.Cookie,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(s))
}

// Delete handles DELETE /v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

// Teams handles GET /v1/sessions/:id/teams.
func (h *SessionHandler) Teams(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	teams, err := s.Teams(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": teams})
}

// Standings handles GET /v1/sessions/:id/standings?table=.
func (h *SessionHandler) Standings(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	records, err := s.Standings(c.Request.Context(), c.Query("table"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

// Roster handles GET /v1/sessions/:id/roster?team_id=.
func (h *SessionHandler) Roster(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	roster, err := s.Roster(c.Request.Context(), c.Query("team_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

// FreeAgents handles GET /v1/sessions/:id/free-agents?position=.
func (h *SessionHandler) FreeAgents(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	players, err := s.FreeAgents(c.Request.Context(), c.Query("position"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": players})
}

// Chat handles POST /v1/sessions/:id/chat. The request blocks for the whole
// orchestration cycle.
func (h *SessionHandler) Chat(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	reply, err := s.Submit(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Transcript handles GET /v1/sessions/:id/transcript.
func (h *SessionHandler) Transcript(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toTurnResponses(s.Transcript())})
}

// ClearTranscript handles DELETE /v1/sessions/:id/transcript.
func (h *SessionHandler) ClearTranscript(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	// the in-memory transcript is already cleared when persisting fails
	_ = s.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Recommend handles POST /v1/sessions/:id/recommendations.
func (h *SessionHandler) Recommend(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	rec, err := s.Recommend(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *SessionHandler) session(c *gin.Context) (*sessionx.Session, bool) {
	s, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

func toSessionResponse(s *sessionx.Session) SessionResponse {
	return SessionResponse{
		ID:       s.ID(),
		LeagueID: s.LeagueID(),
		Team:     s.Team(),
		Turns:    len(s.Transcript()),
	}
}

func toTurnResponses(turns []statex.Turn) []TurnResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{
			Role:      string(t.Role),
			Content:   t.Content,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
