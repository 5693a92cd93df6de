package handlers

import (
	"net/http"

	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
	"github.com/linkhoard/linkhoard/internal/logger"
)

// Revalidate triggers a manual revalidation sweep between ticks.
func Revalidate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.RevalidateTrigger <- struct{}{}:
			d.Logger.Info("manual revalidation triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("revalidation triggered\n"))
		default:
			d.Logger.Warn("revalidation already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("revalidation already in progress, please wait\n"))
		}
	}
}
