package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"eth_history_api/internal/domain"
	apierr "eth_history_api/internal/errors"
	"eth_history_api/pkg/metrics"
)

const SourceName = domain.SourceEthereumRPC

type Client struct {
	rpcClient *gethrpc.Client
	url       string
}

type rpcBlock struct {
	Number        string            `json:"number"`
	Timestamp     string            `json:"timestamp"`
	Hash          string            `json:"hash"`
	Transactions  []json.RawMessage `json:"transactions"`
	GasUsed       *string           `json:"gasUsed"`
	BaseFeePerGas *string           `json:"baseFeePerGas"`
}

// NewClient prepares an HTTP JSON-RPC client for rpcURL. No request is sent
// until the first call.
func NewClient(rpcURL string, timeout time.Duration) (*Client, error) {
	c, err := gethrpc.DialHTTPWithClient(rpcURL, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return &Client{rpcClient: c, url: rpcURL}, nil
}

func (c *Client) Close() { c.rpcClient.Close() }

// FetchCurrentBlock reads the latest block header fields.
func (c *Client) FetchCurrentBlock(ctx context.Context) (domain.BlockInfo, error) {
	start := time.Now()
	var raw *rpcBlock
	err := c.rpcClient.CallContext(ctx, &raw, "eth_getBlockByNumber", "latest", false)
	metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(SourceName, "error").Inc()
		zap.L().Warn("eth_getBlockByNumber failed", zap.String("url", c.url), zap.Error(err))
		return domain.BlockInfo{}, classify(err)
	}
	if raw == nil {
		metrics.UpstreamRequests.WithLabelValues(SourceName, "decode_error").Inc()
		return domain.BlockInfo{}, &apierr.DecodeError{Field: "result", Err: errors.New("no block in response")}
	}

	info, err := decodeBlock(raw)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(SourceName, "decode_error").Inc()
		return domain.BlockInfo{}, err
	}
	metrics.UpstreamRequests.WithLabelValues(SourceName, "ok").Inc()
	return info, nil
}

func classify(err error) error {
	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		return &apierr.UpstreamError{Source: SourceName, Status: httpErr.StatusCode, Err: err}
	}
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return &apierr.RpcError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &apierr.DecodeError{Field: "result", Err: err}
	}
	return &apierr.UpstreamError{Source: SourceName, Err: err}
}

func decodeBlock(b *rpcBlock) (domain.BlockInfo, error) {
	number, err := hexutil.DecodeUint64(b.Number)
	if err != nil {
		return domain.BlockInfo{}, &apierr.DecodeError{Field: "number", Value: b.Number, Err: err}
	}
	ts, err := hexutil.DecodeUint64(b.Timestamp)
	if err != nil {
		return domain.BlockInfo{}, &apierr.DecodeError{Field: "timestamp", Value: b.Timestamp, Err: err}
	}
	hash, err := hexutil.Decode(b.Hash)
	if err != nil || len(hash) != common.HashLength {
		if err == nil {
			err = fmt.Errorf("want %d bytes, got %d", common.HashLength, len(hash))
		}
		return domain.BlockInfo{}, &apierr.DecodeError{Field: "hash", Value: b.Hash, Err: err}
	}

	info := domain.BlockInfo{
		Number:    number,
		Timestamp: ts,
		Hash:      common.BytesToHash(hash).Hex(),
	}

	// optional metrics are dropped rather than failing the whole block
	if b.Transactions != nil {
		n := uint32(len(b.Transactions))
		info.TransactionCount = &n
	}
	if b.GasUsed != nil {
		if gas, err := hexutil.DecodeUint64(*b.GasUsed); err == nil {
			info.GasUsed = &gas
		} else {
			zap.L().Debug("ignoring malformed gasUsed", zap.String("value", *b.GasUsed))
		}
	}
	if b.BaseFeePerGas != nil {
		if wei, err := hexutil.DecodeBig(*b.BaseFeePerGas); err == nil {
			gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
			info.BaseFeeGwei = &gwei
		} else {
			zap.L().Debug("ignoring malformed baseFeePerGas", zap.String("value", *b.BaseFeePerGas))
		}
	}
	return info, nil
}
