package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"trek-assistant-be/internal/dto"
	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const writeWait = 10 * time.Second

// Frame is the only message shape the client ever receives.
type Frame struct {
	Type      string           `json:"type"`
	Message   string           `json:"message,omitempty"`
	Data      *dto.AskResponse `json:"data,omitempty"`
	Timestamp string           `json:"timestamp"`
}

func newFrame(frameType, message string) Frame {
	return Frame{
		Type:      frameType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Handler runs the ask protocol over one WebSocket connection.
type Handler struct {
	manager        *Manager
	askService     service.IAskService
	firstMsgWindow time.Duration
	logger         logger.ILogger
}

func NewHandler(manager *Manager, askService service.IAskService, timeoutSeconds int, log logger.ILogger) *Handler {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Handler{
		manager:        manager,
		askService:     askService,
		firstMsgWindow: time.Duration(timeoutSeconds) * time.Second,
		logger:         log,
	}
}

// Serve owns the connection from upgrade to close. The protocol is strictly
// sequential: welcome, one question, progress frames, one answer frame.
func (h *Handler) Serve(conn *websocket.Conn) {
	defer conn.Close()

	release, ok := h.manager.Acquire(conn)
	if !ok {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many active sessions")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}
	defer release()

	// Writes come from both the reader goroutine and the progress callback.
	var writeMu sync.Mutex
	writeFrame := func(f Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		payload, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	if err := writeFrame(newFrame("welcome", "Connected. Send your trekking question as a text message.")); err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(h.firstMsgWindow))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		writeFrame(newFrame("error", fmt.Sprintf("No question received within %s.", h.firstMsgWindow)))
		return
	}

	question := decodeQuestion(raw)
	if question == "" {
		writeFrame(newFrame("error", "Empty question."))
		return
	}

	h.logger.Info("websocket", "question received", map[string]interface{}{
		"remote_addr": conn.RemoteAddr().String(),
		"question":    question,
	})

	if cached, ok := h.askService.CachedAnswer(question); ok {
		writeFrame(newFrame("progress", "Returning cached answer."))
		h.writeAnswer(writeFrame, cached)
		return
	}

	// A failed progress write means the client is gone; cancel the run
	// rather than finishing an answer nobody will read.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	onProgress := func(message string) {
		if err := writeFrame(newFrame("progress", message)); err != nil {
			cancel()
		}
	}

	res := h.askService.Ask(ctx, question, onProgress)
	h.writeAnswer(writeFrame, res)
}

func (h *Handler) writeAnswer(writeFrame func(Frame) error, res *dto.AskResponse) {
	frame := newFrame("answer", "")
	frame.Data = res
	if err := writeFrame(frame); err != nil {
		h.logger.Warn("websocket", "failed to deliver answer frame", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// decodeQuestion accepts either a bare text question or {"question": "..."}.
func decodeQuestion(raw []byte) string {
	var req dto.AskRequest
	if err := json.Unmarshal(raw, &req); err == nil && req.Question != "" {
		return strings.TrimSpace(req.Question)
	}
	return strings.TrimSpace(string(raw))
}
