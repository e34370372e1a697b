package broadcast

import (
	"net/http"

	"github.com/gobwas/ws"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Handler upgrades feed requests and hands the connection to the hub. The
// session is registered before its pumps start so the queued snapshot is
// the first frame written.
func Handler(h *Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Warn("Upgrade Failed", zap.Error(err))
			return
		}

		s := NewSession(ulid.Make().String(), conn, h, logger)
		h.Register(s)
		s.Start()
	}
}
