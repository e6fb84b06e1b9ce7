package session

import (
	"time"

	"ovdlink/internal/protocol"
	"ovdlink/internal/tcp"
)

type LayerStatus struct {
	Eye    string `json:"eye"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Status is the snapshot served by the status API.
type Status struct {
	SessionID       string         `json:"session_id"`
	ListenAddr      string         `json:"listen_addr"`
	StartedAt       time.Time      `json:"started_at"`
	Uptime          string         `json:"uptime"`
	Link            tcp.State      `json:"link"`
	QueueDepths     map[string]int `json:"queue_depths"`
	FramesPresented uint64         `json:"frames_presented"`
	Layers          []LayerStatus  `json:"layers"`
}

func eyeName(e protocol.Eye) string {
	if e == protocol.EyeRight {
		return "right"
	}
	return "left"
}

func (s *Session) Status() Status {
	st := Status{
		SessionID:   s.ID,
		ListenAddr:  s.ListenAddr(),
		StartedAt:   s.StartedAt,
		Link:        s.server.Manager.Snapshot(),
		QueueDepths: s.endpoints.Depths(),
		Layers:      []LayerStatus{},
	}
	if !s.StartedAt.IsZero() {
		st.Uptime = time.Since(s.StartedAt).Round(time.Second).String()
	}

	s.mu.Lock()
	st.FramesPresented = s.presented
	for _, f := range s.layers {
		if f != nil {
			st.Layers = append(st.Layers, LayerStatus{Eye: eyeName(f.Eye), Width: f.Width, Height: f.Height})
		}
	}
	s.mu.Unlock()
	return st
}
