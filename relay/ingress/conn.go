package ingress

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/config/features"
	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/openlifting/liftcast/relay/ingress/frame"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// reply is the envelope sent back to the upstream after every frame.
type reply struct {
	Status  int      `json:"status"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

var successMessage = map[string]string{
	frame.TypeUpdate:   "Update processed",
	frame.TypeTimer:    "Timer processed",
	frame.TypeDecision: "Decision processed",
	frame.TypeDatabase: "Database processed",
}

type archiveJob struct {
	category     string
	translations bool
	data         []byte
}

// connection is one upstream websocket. The read pump decodes frames and
// dispatches them, the write pump serializes replies and pings, and the
// archive pump unpacks ZIP deliveries off the frame path.
type connection struct {
	id     string
	svc    *Service
	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte
	jobs   chan archiveJob
}

func newConnection(s *Service, ws *websocket.Conn) *connection {
	ctx, cancel := context.WithCancel(s.ctx)
	return &connection{
		id:     uuid.NewString(),
		svc:    s,
		ws:     ws,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, 8),
		jobs:   make(chan archiveJob, archiveQueueDepth),
	}
}

func (c *connection) readPump() {
	defer func() {
		c.cancel()
		if err := c.ws.Close(); err != nil {
			log.WithError(err).Debug("Could not close upstream connection")
		}
		activeConnectionsGauge.Dec()
		log.WithFields(logrus.Fields{
			"conn":   c.id,
			"remote": c.ws.RemoteAddr().String(),
		}).Info("Upstream disconnected")
	}()
	c.ws.SetReadLimit(params.Relay().MaxBinaryFrameBytes)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithError(err).Error("Could not set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("Upstream connection closed unexpectedly")
			}
			return
		}
		bytesReceivedCount.Add(float64(len(data)))
		switch messageType {
		case websocket.TextMessage:
			framesReceivedCount.WithLabelValues("text").Inc()
			c.safelyHandle(func() { c.handleText(data) })
		case websocket.BinaryMessage:
			framesReceivedCount.WithLabelValues("binary").Inc()
			c.safelyHandle(func() { c.handleBinary(data) })
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			log.WithError(err).Debug("Could not close upstream connection")
		}
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("Could not write reply to upstream")
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			deadline := time.Now().Add(writeWait)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
				log.WithError(err).Debug("Could not write close message")
			}
			return
		}
	}
}

// archivePump serializes ZIP deliveries so the events they emit keep the
// order in which the archives arrived.
func (c *connection) archivePump() {
	for {
		select {
		case job := <-c.jobs:
			c.safelyHandle(func() { c.runArchiveJob(job) })
		case <-c.ctx.Done():
			return
		}
	}
}

// safelyHandle recovers a panicking frame handler so one bad frame cannot
// take the connection down.
func (c *connection) safelyHandle(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("recovered", r).Error("Panicked while handling ingress frame! Recovering...")
			debug.PrintStack()
			c.reply(reply{Status: 500, Reason: "internal error"})
		}
	}()
	fn()
}

func (c *connection) handleText(data []byte) {
	env, err := frame.DecodeText(data)
	if err != nil {
		c.reply(reply{Status: 500, Reason: err.Error()})
		return
	}
	if features.Get().VerboseFrameLogging {
		log.WithFields(logrus.Fields{
			"conn":    c.id,
			"type":    env.Type,
			"version": env.Version,
			"bytes":   len(data),
		}).Debug("Received event frame")
	}
	if !frame.IsEventType(env.Type) {
		c.reply(reply{Status: 500, Reason: fmt.Sprintf("unknown frame type %q", env.Type)})
		return
	}
	if reason, ok := checkVersion(env.Version); !ok {
		c.reply(reply{Status: 400, Reason: reason})
		return
	}
	// The database frame is itself the carrier of a precondition, so it is
	// never gated on the handshake it would otherwise deadlock.
	if env.Type != frame.TypeDatabase {
		if missing := c.svc.cfg.Store.MissingPreconditions(); len(missing) > 0 {
			c.reply(reply{Status: 428, Missing: missing, Reason: "missing_preconditions"})
			return
		}
	}
	switch env.Type {
	case frame.TypeUpdate:
		err = c.svc.cfg.Store.ProcessUpdate(env.Payload)
	case frame.TypeTimer:
		err = c.svc.cfg.Store.ProcessTimer(env.Payload)
	case frame.TypeDecision:
		err = c.svc.cfg.Store.ProcessDecision(env.Payload)
	case frame.TypeDatabase:
		err = c.svc.cfg.Store.ProcessDatabase(env.Payload)
	}
	if err != nil {
		log.WithError(err).WithField("type", env.Type).Error("Could not process event frame")
		c.reply(reply{Status: 500, Reason: err.Error()})
		return
	}
	c.reply(reply{Status: 200, Message: successMessage[env.Type]})
}

func (c *connection) handleBinary(data []byte) {
	tag, payload, err := frame.DecodeBinary(data)
	if err != nil {
		c.reply(reply{Status: 500, Reason: err.Error()})
		return
	}
	tag = frame.Normalize(tag)
	if features.Get().VerboseFrameLogging {
		log.WithFields(logrus.Fields{
			"conn":  c.id,
			"tag":   tag,
			"bytes": len(payload),
		}).Debug("Received binary frame")
	}
	if tag == frame.TagTranslationsZip {
		c.enqueue(archiveJob{translations: true, data: payload})
		return
	}
	category, ok := frame.ArchiveCategory(tag)
	if !ok {
		c.reply(reply{Status: 500, Reason: fmt.Sprintf("unknown binary tag %q", tag)})
		return
	}
	c.enqueue(archiveJob{category: category, data: payload})
}

func (c *connection) enqueue(job archiveJob) {
	select {
	case c.jobs <- job:
	case <-c.ctx.Done():
	}
}

func (c *connection) runArchiveJob(job archiveJob) {
	if job.translations {
		locales, checksum, err := archive.ParseTranslations(job.data)
		if err != nil {
			log.WithError(err).Error("Could not parse translations bundle")
			c.reply(reply{Status: 500, Reason: err.Error()})
			return
		}
		c.svc.cfg.Store.ProcessTranslations(locales, checksum)
		archiveJobsProcessedCount.WithLabelValues("translations").Inc()
		c.reply(reply{Status: 200, Message: "Translations processed"})
		return
	}
	count, err := c.svc.cfg.Extractor.Extract(job.category, job.data)
	if err != nil {
		if count == 0 {
			log.WithError(err).WithField("category", job.category).Error("Could not extract archive")
			c.reply(reply{Status: 500, Reason: err.Error()})
			return
		}
		// Partial extraction keeps what was written.
		log.WithError(err).WithField("category", job.category).Warn("Archive extracted with errors")
	}
	c.svc.cfg.Store.ArchiveExtracted(job.category, count)
	archiveJobsProcessedCount.WithLabelValues(job.category).Inc()
	c.reply(reply{Status: 200, Message: fmt.Sprintf("Archive processed: %d entries", count)})
}

func (c *connection) reply(r reply) {
	data, err := json.Marshal(r)
	if err != nil {
		log.WithError(err).Error("Could not marshal reply envelope")
		return
	}
	repliesSentCount.WithLabelValues(fmt.Sprintf("%d", r.Status)).Inc()
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}

// checkVersion gates event frames on the declared protocol version. Frames
// below the supported minimum are refused so stale senders fail loudly
// instead of being half-understood.
func checkVersion(declared string) (string, bool) {
	min := params.Relay().MinProtocolVersion
	if declared == "" {
		return "version_mismatch: frame carries no protocol version", false
	}
	if !semver.IsValid("v" + declared) {
		return fmt.Sprintf("version_mismatch: cannot parse version %q", declared), false
	}
	if semver.Compare("v"+declared, "v"+min) < 0 {
		return fmt.Sprintf("version_mismatch: version %s below minimum %s", declared, min), false
	}
	return "", true
}
