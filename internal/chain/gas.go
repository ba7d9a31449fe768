// Package chain предоставляет оценку стоимости газа по сетям.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Ошибки оракула газа
var (
	ErrUnknownChain = errors.New("unknown chain")
)

// weiPerEther для перевода wei в нативную монету
var weiPerEther = big.NewFloat(1e18)

// GasOracle оценивает стоимость газа одной операции в USD
type GasOracle interface {
	// GasCostUSD возвращает оценку стоимости свопа в указанной сети
	GasCostUSD(ctx context.Context, chain string) (float64, error)
}

// StaticOracle возвращает фиксированные оценки. Используется в
// симуляции и как запасной вариант при недоступном RPC.
type StaticOracle struct {
	costs map[string]float64
}

// NewStaticOracle создает оракул с фиксированными оценками (chain -> USD)
func NewStaticOracle(costs map[string]float64) *StaticOracle {
	cp := make(map[string]float64, len(costs))
	for chain, cost := range costs {
		cp[chain] = cost
	}
	return &StaticOracle{costs: cp}
}

func (o *StaticOracle) GasCostUSD(_ context.Context, chain string) (float64, error) {
	cost, ok := o.costs[chain]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}
	return cost, nil
}

// EVMOracle запрашивает актуальную цену газа у EVM RPC узлов.
// При ошибке RPC отдаёт значение запасного оракула: недоступный
// узел ухудшает точность оценки, но не останавливает сканирование.
type EVMOracle struct {
	mu        sync.RWMutex
	clients   map[string]*ethclient.Client
	nativeUSD map[string]float64 // цена нативной монеты сети в USD
	gasLimit  uint64             // оценочный лимит газа на своп
	fallback  GasOracle
	log       *zap.Logger
}

// NewEVMOracle подключается к RPC узлам перечисленных сетей.
// Сети без эндпоинта обслуживаются запасным оракулом.
func NewEVMOracle(endpoints map[string]string, nativeUSD map[string]float64, gasLimit uint64, fallback GasOracle, log *zap.Logger) *EVMOracle {
	o := &EVMOracle{
		clients:   make(map[string]*ethclient.Client),
		nativeUSD: nativeUSD,
		gasLimit:  gasLimit,
		fallback:  fallback,
		log:       log,
	}
	for chain, url := range endpoints {
		client, err := ethclient.Dial(url)
		if err != nil {
			log.Warn("gas oracle: rpc dial failed, using fallback",
				zap.String("chain", chain), zap.Error(err))
			continue
		}
		o.clients[chain] = client
	}
	return o
}

// GasCostUSD оценивает стоимость свопа: gasPrice * gasLimit * nativeUSD
func (o *EVMOracle) GasCostUSD(ctx context.Context, chain string) (float64, error) {
	o.mu.RLock()
	client, ok := o.clients[chain]
	o.mu.RUnlock()
	if !ok {
		return o.fallback.GasCostUSD(ctx, chain)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		o.log.Debug("gas oracle: SuggestGasPrice failed, using fallback",
			zap.String("chain", chain), zap.Error(err))
		return o.fallback.GasCostUSD(ctx, chain)
	}

	nativeUSD, ok := o.nativeUSD[chain]
	if !ok {
		return 0, fmt.Errorf("%w: no native price for %s", ErrUnknownChain, chain)
	}

	wei := new(big.Float).SetInt(new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(o.gasLimit)))
	native, _ := new(big.Float).Quo(wei, weiPerEther).Float64()
	return native * nativeUSD, nil
}

// Close закрывает RPC соединения
func (o *EVMOracle) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, client := range o.clients {
		client.Close()
	}
	o.clients = make(map[string]*ethclient.Client)
}
