package socketio_types

import (
	"log"
	"sync"

	"github.com/zishang520/socket.io/v2/socket"
)

// SocketServer is a struct that contains the socket.io server and a map of socket connections.
// It addresses outbound events to a single connection id.
type SocketServer struct {
	Sio_server *socket.Server
	// Map to track connection id -> socket
	Connections map[string]*socket.Socket
	mutex       sync.RWMutex
}

func NewSocketServer() *SocketServer {
	return &SocketServer{
		Connections: make(map[string]*socket.Socket),
	}
}

func (s *SocketServer) AddConnection(connID string, socket *socket.Socket) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Connections[connID] = socket
}

func (s *SocketServer) RemoveConnection(connID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.Connections, connID)
}

func (s *SocketServer) GetConnection(connID string) (*socket.Socket, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	socket, exists := s.Connections[connID]
	return socket, exists
}

func (s *SocketServer) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.Connections)
}

// Emit sends one event to one connection. Connections that are already gone
// are skipped.
func (s *SocketServer) Emit(connID string, event string, payload any) {
	client, ok := s.GetConnection(connID)
	if !ok {
		log.Printf("[EMIT] Dropping %s for closed connection %s", event, connID)
		return
	}
	client.Emit(event, payload)
}
