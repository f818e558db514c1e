package chainclient

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
)

// GasPriceRoutine periodically refreshes the client's gas price
type GasPriceRoutine struct {
	ctx      context.Context
	client   *Client
	interval time.Duration
	stopChan chan struct{}
	mu       sync.RWMutex
	running  bool
	logger   logger.Logger
}

// NewGasPriceRoutine creates a new gas price routine
func NewGasPriceRoutine(ctx context.Context, client *Client, interval time.Duration) *GasPriceRoutine {
	return &GasPriceRoutine{
		ctx:      ctx,
		client:   client,
		interval: interval,
		logger:   client.logger,
	}
}

// Start begins the periodic updates
func (r *GasPriceRoutine) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	r.stopChan = make(chan struct{})
	r.running = true

	go r.run(r.stopChan)
}

// Stop halts the periodic updates
func (r *GasPriceRoutine) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopChan)
	r.stopChan = nil
	r.running = false
}

// IsRunning returns whether the routine is currently running
func (r *GasPriceRoutine) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *GasPriceRoutine) run(stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.update()

	for {
		select {
		case <-ticker.C:
			r.update()
		case <-stop:
			return
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *GasPriceRoutine) update() {
	gasPrice, err := r.client.UpdateGasPrice(r.ctx)
	if err != nil {
		r.logger.ErrorWithChain(r.client.ChainID, "Failed to update gas price: %v", err)
		return
	}
	metrics.GasPrice.WithLabelValues(r.client.chainLabel()).Set(weiToGwei(gasPrice))
}

// weiToGwei converts a wei amount to gwei for reporting
func weiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return gwei
}
