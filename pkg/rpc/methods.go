package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/tinyland-inc/wingmate/pkg/agent"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// StatusResult is the get_status payload.
type StatusResult struct {
	Running    bool                       `json:"running"`
	BotName    string                     `json:"bot_name"`
	Model      string                     `json:"model"`
	Uptime     float64                    `json:"uptime"`
	Transports map[string]TransportStatus `json:"transports"`
	Paused     bool                       `json:"paused"`
	PauseUntil *time.Time                 `json:"pause_until"`
}

// TransportStatus is one transport's entry in the status report.
type TransportStatus struct {
	Active bool `json:"active"`
}

// ChatInfo is one chat in the list_active_chats payload.
type ChatInfo struct {
	ChatID       string    `json:"chat_id"`
	Platform     string    `json:"platform"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Service implements the standard method set over the running agent.
type Service struct {
	State        *agent.RuntimeState
	Orchestrator *agent.Orchestrator
	Store        *store.MessageStore
	BotName      string
	Model        string
}

// RegisterAll installs every standard method on the server.
func (s *Service) RegisterAll(srv *Server) {
	srv.Register("ping", s.ping)
	srv.Register("get_status", s.getStatus)
	srv.Register("send_message", s.sendMessage)
	srv.Register("pause", s.pause)
	srv.Register("resume", s.resume)
	srv.Register("list_active_chats", s.listActiveChats)
}

func (s *Service) ping(ctx context.Context, params map[string]any) (any, error) {
	return map[string]any{
		"pong":   true,
		"uptime": s.State.Uptime().Seconds(),
	}, nil
}

func (s *Service) getStatus(ctx context.Context, params map[string]any) (any, error) {
	transports := make(map[string]TransportStatus)
	for platform, active := range s.Orchestrator.Manager().Active() {
		transports[platform] = TransportStatus{Active: active}
	}

	paused, until := s.State.PauseInfo()
	st := StatusResult{
		Running:    true,
		BotName:    s.BotName,
		Model:      s.Model,
		Uptime:     s.State.Uptime().Seconds(),
		Transports: transports,
		Paused:     paused,
	}
	if !until.IsZero() {
		st.PauseUntil = &until
	}
	return st, nil
}

// sendMessage dispatches directly through the transport, skipping every
// pipeline gate. The outgoing message is still persisted so the history
// stays coherent.
func (s *Service) sendMessage(ctx context.Context, params map[string]any) (any, error) {
	jid, _ := params["jid"].(string)
	text, _ := params["text"].(string)
	platform, _ := params["platform"].(string)
	if platform == "" {
		platform = transport.PlatformWhatsApp
	}
	if jid == "" || text == "" {
		return nil, errors.New("jid and text required")
	}

	if err := s.Orchestrator.Send(ctx, platform, jid, text); err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}
	s.Orchestrator.Processor().RecordOutgoing(platform, jid, text)
	return map[string]any{"success": true}, nil
}

func (s *Service) pause(ctx context.Context, params map[string]any) (any, error) {
	var d time.Duration
	if seconds, ok := params["duration"].(float64); ok && seconds > 0 {
		d = time.Duration(seconds * float64(time.Second))
	}
	s.State.Pause(d)

	_, until := s.State.PauseInfo()
	resp := map[string]any{"paused": true}
	if !until.IsZero() {
		resp["until"] = until
	}
	return resp, nil
}

func (s *Service) resume(ctx context.Context, params map[string]any) (any, error) {
	s.State.Resume()
	return map[string]any{"paused": false}, nil
}

func (s *Service) listActiveChats(ctx context.Context, params map[string]any) (any, error) {
	limit := 20
	if l, ok := params["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	chats, err := s.Store.RecentChats(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ChatInfo, 0, len(chats))
	for _, c := range chats {
		out = append(out, ChatInfo{
			ChatID:       c.ChatID,
			Platform:     c.Platform,
			LastActivity: c.LastActivity,
			MessageCount: c.MessageCount,
		})
	}
	return map[string]any{"chats": out}, nil
}
