package faucetserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/octopus-network/oct-faucet-server/faucetjson"
	"github.com/octopus-network/oct-faucet-server/model"
)

const (
	// websocketSendBufferSize is the number of elements the send channel
	// can queue before blocking.  Note that this only applies to requests
	// handled directly in the websocket client input handler or the async
	// handler since notifications have their own queuing mechanism
	// independent of the send channel buffer.
	websocketSendBufferSize = 50

	// wsWriteWait is the time allowed to write a message to a peer before
	// the connection is considered dead.
	wsWriteWait = 10 * time.Second
)

// wsUpgrader negotiates websocket connections for the live feed. The faucet
// is a public service, so any origin is accepted.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient provides an abstraction for handling one websocket live feed
// subscriber. Subscribers only listen; anything they send is discarded.
type wsClient struct {
	conn     *websocket.Conn
	addr     string
	server   *FaucetServer
	sendChan chan []byte
	quit     chan struct{}
	wg       sync.WaitGroup

	disconnectOnce sync.Once
}

func newWebsocketClient(server *FaucetServer, conn *websocket.Conn, remoteAddr string) *wsClient {
	return &wsClient{
		conn:     conn,
		addr:     remoteAddr,
		server:   server,
		sendChan: make(chan []byte, websocketSendBufferSize),
		quit:     make(chan struct{}),
	}
}

// inHandler drains incoming messages until the connection errors out. The
// live feed has no inbound protocol; reading is only needed to detect a
// closed peer.
func (c *wsClient) inHandler() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	c.Disconnect()
	c.wg.Done()
}

// outHandler writes queued notifications to the peer.
func (c *wsClient) outHandler() {
out:
	for {
		select {
		case msg := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Disconnect()
				break out
			}
		case <-c.quit:
			break out
		}
	}
	c.wg.Done()
}

// QueueNotification queues a marshalled notification for the peer, dropping
// it when the peer cannot keep up.
func (c *wsClient) QueueNotification(msg []byte) {
	select {
	case c.sendChan <- msg:
	case <-c.quit:
	default:
		log.Debugf("Dropping notification for slow websocket client %v", c.addr)
	}
}

// Disconnect closes the connection and stops the handlers. Safe to call more
// than once.
func (c *wsClient) Disconnect() {
	c.disconnectOnce.Do(func() {
		log.Tracef("Disconnecting websocket client %v", c.addr)
		close(c.quit)
		c.conn.Close()
		c.server.ntfnMgr.RemoveClient(c)
	})
}

// Start begins the handlers for the client.
func (c *wsClient) Start() {
	c.wg.Add(2)
	go c.inHandler()
	go c.outHandler()
}

// WaitForShutdown blocks until the client handlers are done.
func (c *wsClient) WaitForShutdown() {
	c.wg.Wait()
}

// WebsocketHandler runs a new websocket client. It blocks until the
// connection closes, keeping the client goroutines tied to the server
// lifetime.
func (svr *FaucetServer) WebsocketHandler(conn *websocket.Conn, remoteAddr string) {
	// Clear the read deadline that was set before the websocket hijacked
	// the connection.
	conn.SetReadDeadline(time.Time{})

	client := newWebsocketClient(svr, conn, remoteAddr)
	if !svr.ntfnMgr.AddClient(client) {
		log.Infof("Max websocket clients exceeded [%d] - "+
			"disconnecting client %s", svr.cfg.MaxWebsockets, remoteAddr)
		conn.Close()
		return
	}

	client.Start()
	client.WaitForShutdown()
	log.Tracef("Disconnected websocket client %v", remoteAddr)
}

// Notification types
type notificationDisbursement model.Disbursement
type notificationUnregisterClient wsClient

// notificationRegisterClient carries its own reply channel so concurrent
// registrations cannot observe each other's outcome.
type notificationRegisterClient struct {
	client *wsClient
	done   chan bool
}

// wsNotificationManager is a connection and notification manager used for
// websockets.  It allows websocket clients to be added and removed and
// broadcasts disbursement notifications to every connected client.
type wsNotificationManager struct {
	server *FaucetServer

	// queueNotification queues a notification for handling.
	queueNotification chan interface{}

	// notificationMsgs feeds notificationHandler with notifications
	// and client (un)registration requests from a queue as well as
	// registration and unregistration requests from clients.
	notificationMsgs chan interface{}

	// Access channel for current number of connected clients.
	numClients chan int

	wg   sync.WaitGroup
	quit chan struct{}
}

func newWsNotificationManager(server *FaucetServer) *wsNotificationManager {
	return &wsNotificationManager{
		server:            server,
		queueNotification: make(chan interface{}),
		notificationMsgs:  make(chan interface{}),
		numClients:        make(chan int),
		quit:              make(chan struct{}),
	}
}

// queueHandler manages a queue of empty interfaces, reading from in and
// sending the oldest unsent to out.  This handler stops when either of the
// in or quit channels are closed, and closes out before returning, without
// waiting to send any variables still remaining in the queue.
func queueHandler(in <-chan interface{}, out chan<- interface{}, quit <-chan struct{}) {
	var q []interface{}
	var dequeue chan<- interface{}
	skipQueue := out
	var next interface{}
out:
	for {
		select {
		case n, ok := <-in:
			if !ok {
				// Sender closed input channel.
				break out
			}

			// Either send to out immediately if skipQueue is
			// non-nil (queue is empty) and reader is ready,
			// or append to the queue and send later.
			select {
			case skipQueue <- n:
			default:
				q = append(q, n)
				dequeue = out
				skipQueue = nil
				next = q[0]
			}

		case dequeue <- next:
			copy(q, q[1:])
			q[len(q)-1] = nil // avoid leak
			q = q[:len(q)-1]
			if len(q) == 0 {
				dequeue = nil
				skipQueue = out
				next = nil
			} else {
				next = q[0]
			}

		case <-quit:
			break out
		}
	}
	close(out)
}

func (m *wsNotificationManager) queueHandler() {
	queueHandler(m.queueNotification, m.notificationMsgs, m.quit)
	m.wg.Done()
}

// NotifyDisbursement passes a completed disbursement to the notification
// manager for broadcast to the live feed.
func (m *wsNotificationManager) NotifyDisbursement(disbursement *model.Disbursement) {
	n := notificationDisbursement(*disbursement)

	// As NotifyDisbursement will be called by the dispenser and the
	// dispenser may be shut down concurrently with the manager, use a
	// select statement to unblock enqueuing the notification once the
	// manager begins its shutdown.
	select {
	case m.queueNotification <- &n:
	case <-m.quit:
	}
}

// notificationHandler reads notification and client registration requests
// from the queue handler and processes one at a time.
func (m *wsNotificationManager) notificationHandler() {
	clients := make(map[*wsClient]struct{})

out:
	for {
		select {
		case n, ok := <-m.notificationMsgs:
			if !ok {
				// queueHandler quit.
				break out
			}
			switch n := n.(type) {
			case *notificationDisbursement:
				if len(clients) > 0 {
					m.notifyDisbursement(clients, (*model.Disbursement)(n))
				}
			case *notificationRegisterClient:
				if m.server.cfg.MaxWebsockets > 0 &&
					len(clients) >= m.server.cfg.MaxWebsockets {
					n.done <- false
					continue
				}
				clients[n.client] = struct{}{}
				n.done <- true
			case *notificationUnregisterClient:
				delete(clients, (*wsClient)(n))
			default:
				log.Warn("Unhandled notification type")
			}

		case m.numClients <- len(clients):

		case <-m.quit:
			// faucet server shutting down.
			break out
		}
	}

	for client := range clients {
		client.Disconnect()
	}
	m.wg.Done()
}

// notifyDisbursement marshals the live feed payload once and queues it to
// every connected client.
func (m *wsNotificationManager) notifyDisbursement(clients map[*wsClient]struct{},
	disbursement *model.Disbursement) {

	ntfn := faucetjson.LiveNotification{
		Account: disbursement.Account,
		Link:    disbursement.Link,
		Receipt: disbursement.Receipt,
		Time:    disbursement.Time,
	}
	msg, err := json.Marshal(&ntfn)
	if err != nil {
		log.Errorf("Unable to marshal live notification: %v", err)
		return
	}

	for client := range clients {
		client.QueueNotification(msg)
	}
}

// NumClients returns the number of clients actively being served.
func (m *wsNotificationManager) NumClients() (n int) {
	select {
	case n = <-m.numClients:
	case <-m.quit: // Use default n (0) if server has shut down.
	}
	return
}

// AddClient adds the passed websocket client to the notification manager and
// reports whether it was accepted.
func (m *wsNotificationManager) AddClient(c *wsClient) bool {
	n := &notificationRegisterClient{client: c, done: make(chan bool, 1)}
	select {
	case m.queueNotification <- n:
	case <-m.quit:
		return false
	}
	select {
	case accepted := <-n.done:
		return accepted
	case <-m.quit:
		return false
	}
}

// RemoveClient removes the passed websocket client and all notifications
// registered for it.
func (m *wsNotificationManager) RemoveClient(c *wsClient) {
	select {
	case m.queueNotification <- (*notificationUnregisterClient)(c):
	case <-m.quit:
	}
}

// Start starts the goroutines required for the manager to queue and process
// websocket client notifications.
func (m *wsNotificationManager) Start() {
	m.wg.Add(2)
	go m.queueHandler()
	go m.notificationHandler()
}

// Shutdown shuts down the manager, stopping the notification queue and
// notification handler goroutines.
func (m *wsNotificationManager) Shutdown() {
	close(m.quit)
}

// WaitForShutdown blocks until all notification manager goroutines have
// finished.
func (m *wsNotificationManager) WaitForShutdown() {
	m.wg.Wait()
}
