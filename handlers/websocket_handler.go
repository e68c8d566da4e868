package handlers

import (
	"log"
	"net/http"

	"github.com/arenapool/wager-system/live"
	"github.com/arenapool/wager-system/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true // Для разработки разрешаем все
	},
}

type WebSocketHandler struct {
	hub             *live.Hub
	registryService services.RegistryService
}

func NewWebSocketHandler(hub *live.Hub, registryService services.RegistryService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		registryService: registryService,
	}
}

// ServeWs обрабатывает WebSocket запросы для конкретного турнира.
// Клиент должен подключаться к /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		http.Error(w, "Missing or invalid tournamentID", http.StatusBadRequest)
		return
	}

	// Комнату открываем только для существующего турнира.
	if _, err := h.registryService.GetTournamentByID(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection for tournament %d: %v", tournamentID, err)
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		return
	}

	roomID := live.TournamentRoom(tournamentID)

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256), // Буферизированный канал
		Room: roomID,
	}
	client.Hub.Register <- client

	// Горутины чтения и записи живут, пока клиент не отключится.
	go client.WritePump()
	go client.ReadPump()
}
