package osk

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

type deadmanRequest struct {
	key    keycrypto.Key
	reason application.SetOskReason
}

// OskDeadman wraps another OskHandler and guarantees the key it protects
// is erased if nothing refreshes it within erase_after: on startup, on
// every request's timeout, and on shutdown. The worker runs on its own
// locked OS thread so it keeps making progress even if the rest of the
// process is busy.
type OskDeadman struct {
	requests chan deadmanRequest
	done     chan struct{}
}

// StartDeadman launches the worker and returns a ready-to-use
// application.OskHandler. makeBroker is called once, on the worker
// goroutine, to build the wrapped sink.
func StartDeadman(eraseAfter time.Duration, logger application.Logger, makeBroker func() application.OskHandler) *OskDeadman {
	requests := make(chan deadmanRequest, 8)
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		worker := &deadmanWorker{
			broker:     makeBroker(),
			eraseAfter: eraseAfter,
			requests:   requests,
			logger:     logger,
		}
		worker.run()
	}()

	return &OskDeadman{requests: requests, done: done}
}

func (d *OskDeadman) SetOsk(ctx context.Context, key keycrypto.Key, reason application.SetOskReason) error {
	select {
	case d.requests <- deadmanRequest{key: key, reason: reason}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the worker to erase the key and exit, then blocks until it has.
func (d *OskDeadman) Stop() {
	close(d.requests)
	<-d.done
}

type deadmanWorker struct {
	broker     application.OskHandler
	eraseAfter time.Duration
	requests   chan deadmanRequest
	logger     application.Logger
}

func (w *deadmanWorker) run() {
	ctx := context.Background()

	if err := application.EraseStaleOsk(ctx, w.broker); err != nil {
		panic(fmt.Sprintf("osk: deadman worker failed to erase key on startup: %v", err))
	}

	for {
		timer := time.NewTimer(w.eraseAfter)
		select {
		case req, ok := <-w.requests:
			timer.Stop()
			if !ok {
				w.logger.Infof("shutting down output key deadman; erasing output key")
				if err := application.EraseStaleOsk(ctx, w.broker); err != nil {
					panic(fmt.Sprintf("osk: deadman worker failed to erase key on shutdown: %v", err))
				}
				return
			}
			w.logger.Debugf("output key deadman received SetOsk request; updating OSK")
			if err := w.broker.SetOsk(ctx, req.key, req.reason); err != nil {
				panic(fmt.Sprintf("osk: deadman worker failed to set key: %v", err))
			}
		case <-timer.C:
			w.logger.Warnf("output key lifetime ended; erasing key")
			if err := application.EraseStaleOsk(ctx, w.broker); err != nil {
				panic(fmt.Sprintf("osk: deadman worker failed to erase key on timeout: %v", err))
			}
		}
	}
}
