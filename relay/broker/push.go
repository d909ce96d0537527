package broker

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/config/params"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PushHandler streams notifications to one downstream client as
// server-sent events. Filters come from the query string: ?fop=A restricts
// to one platform, ?kinds=update,timer to a comma-separated kind list.
// Comment lines keep idle connections alive through proxies.
func (b *Broker) PushHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	opts := SubscribeOptions{FOP: r.URL.Query().Get("fop")}
	if kinds := r.URL.Query().Get("kinds"); kinds != "" {
		opts.Kinds = strings.Split(kinds, ",")
	}
	sub := b.Subscribe(opts)
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.WithField("remote", r.RemoteAddr).Debug("Push subscriber connected")
	defer log.WithField("remote", r.RemoteAddr).Debug("Push subscriber disconnected")

	keepAlive := time.NewTicker(params.Relay().KeepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case n, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.WithError(err).Error("Could not marshal notification")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.EventKind, data); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-b.ctx.Done():
			return
		}
	}
}
