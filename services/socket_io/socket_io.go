package socket_io

import (
	"Arena/config"
	apperrors "Arena/errors"
	"Arena/middleware"
	"Arena/services/socket_io/handlers"
	socketio_types "Arena/services/socket_io/types"
	"log"

	"github.com/gin-gonic/gin"
	eiolog "github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

type MySocketServer socketio_types.SocketServer

func (sio *MySocketServer) base() *socketio_types.SocketServer {
	return (*socketio_types.SocketServer)(sio)
}

// Start creates the socket.io server, binds every client event to hub and
// mounts the transport on router.
func (sio *MySocketServer) Start(router *gin.Engine, cfg config.Config, hub *handlers.Hub) {
	eiolog.DEBUG = cfg.Socket.Debug
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	c.SetPingInterval(cfg.Socket.PingInterval)
	c.SetPingTimeout(cfg.Socket.PingTimeout)
	c.SetMaxHttpBufferSize(1000000)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      corsOrigin(cfg.AllowedOrigins),
		Credentials: true,
	})

	// KEY: inicializar el map, sino panikea
	if sio.Connections == nil {
		sio.Connections = make(map[string]*socket.Socket)
	}

	secret := []byte(cfg.JWTSecret)

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)
		connID := string(client.Id())

		// With a secret configured the handshake must carry a token, and
		// the player can only register under the id inside it
		tokenPlayer := ""
		if len(secret) > 0 {
			playerID, err := middleware.SocketTokenPlayer(secret, client.Handshake().Auth)
			if err != nil {
				log.Printf("[CONNECT] Rejecting %s: %v", connID, err)
				client.Emit("error", gin.H{"message": "Unauthorized", "code": apperrors.CodeNotRegistered})
				client.Disconnect(true)
				return
			}
			tokenPlayer = playerID
		}

		sio.base().AddConnection(connID, client)
		log.Printf("[CONNECT] New connection %s (%d open)", connID, sio.base().ConnectionCount())

		client.On("register", handlers.HandleRegister(hub, connID, tokenPlayer))
		client.On("join_queue", handlers.HandleJoinQueue(hub, connID))
		client.On("leave_queue", handlers.HandleLeaveQueue(hub, connID))
		client.On("get_available_players", handlers.HandleGetAvailablePlayers(hub, connID))
		client.On("select_opponent", handlers.HandleSelectOpponent(hub, connID))
		client.On("accept_invitation", handlers.HandleAcceptInvitation(hub, connID))
		client.On("decline_invitation", handlers.HandleDeclineInvitation(hub, connID))
		client.On("game_action", handlers.HandleGameAction(hub, connID))
		client.On("get_game_state", handlers.HandleGetGameState(hub, connID))
		client.On("leave_game", handlers.HandleLeaveGame(hub, connID))

		// NOTE: will remove sio connection from map
		client.On("disconnect", handlers.HandleDisconnect(hub, connID, func() {
			sio.base().RemoveConnection(connID)
		}))
	})

	router.POST("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(sio.Sio_server.ServeHandler(c)))

	log.Println("Socket server started")
}

// Close disconnects every client.
func (sio *MySocketServer) Close() {
	if sio.Sio_server != nil {
		sio.Sio_server.Close(nil)
	}
}

func corsOrigin(allowed []string) any {
	for _, origin := range allowed {
		if origin == "*" {
			return "*"
		}
	}
	return allowed
}
