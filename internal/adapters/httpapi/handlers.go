package httpapi

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feltworks/deckhand/internal/domain"
	"github.com/feltworks/deckhand/pkg/log"
)

// cardJSON is the wire form of a stable card.
type cardJSON struct {
	UID       string     `json:"uid"`
	Label     string     `json:"label,omitempty"`
	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// handJSON is the wire form of a stable hand. Zero timestamps are
// rendered as absent fields rather than the epoch.
type handJSON struct {
	Cards       []cardJSON `json:"hand_cards"`
	HandSize    int        `json:"hand_size"`
	Stable      bool       `json:"stable"`
	LastStable  *time.Time `json:"last_stable,omitempty"`
	FoldStarted *time.Time `json:"fold_started,omitempty"`
}

type stateJSON struct {
	Position string     `json:"position"`
	UID      string     `json:"uid"`
	Label    string     `json:"label,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
	HandSize int        `json:"hand_size"`
	Hand     []cardJSON `json:"hand_cards"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t
	return &u
}

func toCardJSON(c domain.StableCard) cardJSON {
	return cardJSON{
		UID:       c.UID,
		Label:     c.Label,
		FirstSeen: optTime(c.FirstSeen),
		LastSeen:  optTime(c.LastSeen),
	}
}

func toHandJSON(h domain.StableHand) handJSON {
	cards := make([]cardJSON, 0, len(h.Cards))
	for _, c := range h.Cards {
		cards = append(cards, toCardJSON(c))
	}
	return handJSON{
		Cards:       cards,
		HandSize:    len(h.Cards),
		Stable:      h.IsStable(),
		LastStable:  optTime(h.LastStable),
		FoldStarted: optTime(h.FoldStarted),
	}
}

func toStateJSON(st domain.PositionState) stateJSON {
	cards := make([]cardJSON, 0, len(st.Hand))
	for _, c := range st.Hand {
		cards = append(cards, toCardJSON(c))
	}
	return stateJSON{
		Position: st.Position,
		UID:      st.UID,
		Label:    st.Label,
		LastSeen: optTime(st.LastSeen),
		HandSize: st.HandSize,
		Hand:     cards,
	}
}

func (s *Server) positionOr404(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrUnknownPosition) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position"})
	} else {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return false
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"positions": s.core.Positions(),
		"uptime_s":  int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleStates(c *gin.Context) {
	states := s.core.States()
	out := make(map[string]stateJSON, len(states))
	for name, st := range states {
		out[name] = toStateJSON(st)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleState(c *gin.Context) {
	st, err := s.core.State(c.Param("position"))
	if !s.positionOr404(c, err) {
		return
	}
	c.JSON(http.StatusOK, toStateJSON(st))
}

func (s *Server) handleHands(c *gin.Context) {
	hands := s.core.Hands()
	out := make(map[string]handJSON, len(hands))
	for name, h := range hands {
		out[name] = toHandJSON(h)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleHand(c *gin.Context) {
	h, err := s.core.Hand(c.Param("position"))
	if !s.positionOr404(c, err) {
		return
	}
	c.JSON(http.StatusOK, toHandJSON(h))
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	obs, err := s.core.History(c.Param("position"), limit)
	if !s.positionOr404(c, err) {
		return
	}
	if obs == nil {
		obs = []domain.TagObservation{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(obs), "observations": obs})
}

func (s *Server) handleCards(c *gin.Context) {
	c.JSON(http.StatusOK, s.labels.All())
}

type mapRequest struct {
	UID   string `json:"uid" binding:"required"`
	Label string `json:"label" binding:"required"`
}

func (s *Server) handleMap(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid and label are required"})
		return
	}
	if err := s.labels.Assign(c.Request.Context(), req.UID, req.Label); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("card mapped", log.Str("uid", req.UID), log.Str("label", req.Label))
	c.JSON(http.StatusOK, gin.H{"uid": strings.ToUpper(strings.TrimSpace(req.UID)), "label": req.Label})
}

type clearRequest struct {
	UID string `json:"uid" binding:"required"`
}

func (s *Server) handleClear(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}
	if err := s.labels.Clear(c.Request.Context(), req.UID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("card mapping cleared", log.Str("uid", req.UID))
	c.JSON(http.StatusOK, gin.H{"uid": strings.ToUpper(strings.TrimSpace(req.UID))})
}

func (s *Server) handleLastUID(c *gin.Context) {
	uid := s.core.LastUID()
	label := ""
	if uid != "" {
		label, _ = s.labels.Lookup(uid)
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "label": label})
}

func (s *Server) handleReaders(c *gin.Context) {
	type readerJSON struct {
		Position string `json:"position"`
		Seat     string `json:"seat,omitempty"`
		Type     string `json:"type,omitempty"`
	}
	out := make([]readerJSON, 0, len(s.core.Positions()))
	for _, name := range s.core.Positions() {
		r := readerJSON{Position: name}
		if spec, ok := s.layout.Readers[name]; ok {
			r.Seat = spec.Position
			r.Type = spec.Type
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, gin.H{
		"table_name":  s.layout.TableName,
		"max_players": s.layout.MaxPlayers,
		"readers":     out,
	})
}

func (s *Server) handleReaderTest(c *gin.Context) {
	name := c.Param("position")
	uid, label, err := s.core.ProbeOnce(c.Request.Context(), name)
	if errors.Is(err, domain.ErrUnknownPosition) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position"})
		return
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"position": name, "detected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"position": name,
		"detected": uid != "",
		"uid":      uid,
		"label":    label,
	})
}

type tagReadRequest struct {
	Position string `json:"position" binding:"required"`
	Page     int    `json:"page"`
}

func (s *Server) handleTagRead(c *gin.Context) {
	var req tagReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position is required"})
		return
	}
	data, err := s.core.ReadPage(c.Request.Context(), req.Position, req.Page)
	if errors.Is(err, domain.ErrUnknownPosition) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown position"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"position": req.Position,
		"page":     req.Page,
		"data":     strings.ToUpper(hex.EncodeToString(data)),
	})
}

type tagWriteRequest struct {
	Position string `json:"position" binding:"required"`
	Page     int    `json:"page"`
	Data     string `json:"data" binding:"required"`
}

func (s *Server) handleTagWrite(c *gin.Context) {
	var req tagWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position and data are required"})
		return
	}
	data, err := hex.DecodeString(strings.TrimSpace(req.Data))
	if err != nil || len(data) == 0 || len(data) > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data must be 1 to 4 bytes of hex"})
		return
	}
	if err := s.core.WritePage(c.Request.Context(), req.Position, req.Page, data); err != nil {
		if errors.Is(err, domain.ErrUnknownPosition) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown position"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("tag page written",
		log.Str("position", req.Position),
		log.Int("page", req.Page))
	c.JSON(http.StatusOK, gin.H{"position": req.Position, "page": req.Page, "written": len(data)})
}
