package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/pagechat/internal/models"
)

const (
	MessageScrape   = "scrape"
	MessageChat     = "chat"
	MessageStatus   = "status"
	MessageStream   = "stream"
	MessageResponse = "response"
	MessageError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

// Message is the envelope for both directions of the websocket channel.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

type incomingMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    struct {
		UseScrapedContent *bool `json:"use_scraped_content"`
	} `json:"data"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType, content string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		zap.L().Debug("server: websocket write failed", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws := &wsConn{conn: conn}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg incomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			ws.send(MessageError, "invalid message: "+err.Error(), nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, ws, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, msg incomingMessage) {
	msgType := msg.Type
	if msgType == "" {
		// Untyped messages are scrapes when they carry a URL.
		if url := urlRegex.FindString(msg.Content); url != "" {
			msgType = MessageScrape
			msg.Content = url
		} else {
			msgType = MessageChat
		}
	}

	switch msgType {
	case MessageScrape:
		s.wsScrape(ctx, ws, strings.TrimSpace(msg.Content))
	case MessageChat:
		s.wsChat(ctx, ws, models.ChatRequest{
			UserPrompt:        msg.Content,
			UseScrapedContent: msg.Data.UseScrapedContent,
		})
	default:
		ws.send(MessageError, fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
}

func (s *Server) wsScrape(ctx context.Context, ws *wsConn, url string) {
	if url == "" {
		ws.send(MessageError, "url is required", nil)
		return
	}

	ws.send(MessageStatus, "Scraping "+url, nil)
	resp, err := s.scrape(ctx, url)
	if err != nil {
		ws.send(MessageError, err.Error(), nil)
		return
	}
	ws.send(MessageResponse, resp.Content, resp)
}

func (s *Server) wsChat(ctx context.Context, ws *wsConn, req models.ChatRequest) {
	if req.UserPrompt == "" {
		ws.send(MessageError, "user_prompt is required", nil)
		return
	}

	resp := s.forwarder.Stream(ctx, req, func(chunk string) error {
		ws.send(MessageStream, chunk, nil)
		return nil
	})
	if resp.Status == models.ChatError {
		ws.send(MessageError, resp.Response, resp)
		return
	}
	ws.send(MessageResponse, resp.Response, resp)
}
