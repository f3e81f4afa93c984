package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/outpost-systems/hivemind/pkg/log"
)

// heartbeatInterval mirrors the teacher's heartbeatLoop cadence, adapted
// to the slower registration cadence spec §4.6 describes.
const heartbeatInterval = 4 * time.Second

// heartbeatLoop periodically re-registers this worker with the master by
// POSTing /slave?port={port}&slave_code={code}. Registration is
// idempotent on the master side, so a missed tick self-heals on the next
// one; failures are logged and do not stop the loop.
func (w *Worker) heartbeatLoop(ctx context.Context) {
	client := &http.Client{Timeout: 3 * time.Second}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	if err := w.sendHeartbeat(ctx, client); err != nil {
		log.Errorf("initial registration failed", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := w.sendHeartbeat(ctx, client); err != nil {
				log.Errorf("heartbeat failed", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) sendHeartbeat(ctx context.Context, client *http.Client) error {
	url := fmt.Sprintf("http://%s/slave?port=%s&slave_code=%s", w.cfg.MasterSocket, w.cfg.Port, w.cfg.SlaveCode)
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("master rejected registration: %s", resp.Status)
	}
	return nil
}
