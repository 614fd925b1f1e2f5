package anchor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hashgraph-online/device-anchor-go/pkg/ledger"
	"github.com/hashgraph-online/device-anchor-go/pkg/merkle"
	"github.com/hashgraph-online/device-anchor-go/pkg/proofstore"
	"github.com/hashgraph-online/device-anchor-go/pkg/queue"
	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

const DefaultWriteConcurrency = 16

type JobConfig struct {
	Queue            queue.Store
	PendingKey       string
	Ledger           ledger.Client
	Proofs           ProofWriter
	ConfirmTimeout   time.Duration
	WriteConcurrency int
	Logger           *zerolog.Logger
	Now              func() time.Time
}

type Job struct {
	queue            queue.Store
	pendingKey       string
	ledger           ledger.Client
	proofs           ProofWriter
	confirmTimeout   time.Duration
	writeConcurrency int
	logger           zerolog.Logger
	now              func() time.Time
}

func NewJob(config JobConfig) (*Job, error) {
	if config.Queue == nil || config.Ledger == nil || config.Proofs == nil {
		return nil, shared.NewConfigurationError("anchor job requires a queue, a ledger client and a proof store", nil)
	}
	pendingKey := config.PendingKey
	if pendingKey == "" {
		pendingKey = queue.DefaultPendingKey
	}
	confirmTimeout := config.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = shared.DefaultConfirmTimeout
	}
	writeConcurrency := config.WriteConcurrency
	if writeConcurrency <= 0 {
		writeConcurrency = DefaultWriteConcurrency
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Job{
		queue:            config.Queue,
		pendingKey:       pendingKey,
		ledger:           config.Ledger,
		proofs:           config.Proofs,
		confirmTimeout:   confirmTimeout,
		writeConcurrency: writeConcurrency,
		logger:           logger.With().Str("component", "anchor").Logger(),
		now:              now,
	}, nil
}

// Run anchors whatever is pending. An empty queue, or a batch already leased
// by another run, yields a Result with Anchored false and no error.
func (j *Job) Run(ctx context.Context) (Result, error) {
	lease, err := queue.Acquire(ctx, j.queue, j.pendingKey, j.now())
	if err != nil {
		return Result{}, shared.NewTransientError("failed to lease pending readings", err)
	}
	if lease == nil {
		return Result{}, nil
	}

	logger := j.logger.With().Str("handle", lease.HandleKey()).Logger()

	items, err := lease.Items(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read leased batch; handle left for recovery")
		return Result{}, shared.NewTransientError("failed to read leased batch", err)
	}
	if len(items) == 0 {
		if err := lease.Commit(ctx); err != nil {
			return Result{}, shared.NewTransientError("failed to delete empty processing handle", err)
		}
		return Result{}, nil
	}

	result, err := j.anchor(ctx, items)
	if err != nil {
		return Result{}, j.compensate(ctx, lease, items, err, logger)
	}

	if err := lease.Commit(ctx); err != nil {
		logger.Error().Err(err).Str("root", result.Root).Msg("batch anchored but processing handle not deleted")
		return result, shared.NewTransientError("batch anchored but processing handle not deleted", err)
	}

	logger.Info().
		Str("root", result.Root).
		Str("transactionSignature", result.TransactionSignature).
		Uint64("sequenceNumber", result.SequenceNumber).
		Int("leaves", result.LeafCount).
		Msg("batch anchored")
	return result, nil
}

func (j *Job) anchor(ctx context.Context, items []string) (Result, error) {
	tree, err := merkle.BuildFromPayloads(items)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build merkle tree: %w", err)
	}
	root := tree.RootHex()

	message, err := json.Marshal(Message{
		Protocol:  ProtocolID,
		Operation: OperationName,
		Root:      root,
		Leaves:    len(items),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode anchor message: %w", err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, j.confirmTimeout)
	receipt, err := j.ledger.SubmitMemo(confirmCtx, message)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("failed to anchor root %s: %w", root, err)
	}

	leafHashes := make([]string, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(j.writeConcurrency)
	for index := range items {
		leafHashes[index] = merkle.LeafHashHex(items[index])
		group.Go(func() error {
			steps, err := tree.Proof(index)
			if err != nil {
				return err
			}
			return j.proofs.Put(groupCtx, leafHashes[index], proofstore.MerkleProof{
				Root:                 root,
				Proof:                steps,
				TransactionSignature: receipt.TransactionID,
				OriginalPayload:      items[index],
				LeafHash:             leafHashes[index],
				TopicID:              receipt.TopicID,
				SequenceNumber:       receipt.SequenceNumber,
			})
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("failed to persist proofs for root %s: %w", root, err)
	}

	return Result{
		Anchored:             true,
		Root:                 root,
		TransactionSignature: receipt.TransactionID,
		TopicID:              receipt.TopicID,
		SequenceNumber:       receipt.SequenceNumber,
		LeafCount:            len(items),
		LeafHashes:           leafHashes,
	}, nil
}

// compensate returns the batch to the pending queue. It runs even when ctx
// is already done.
func (j *Job) compensate(ctx context.Context, lease *queue.Lease, items []string, cause error, logger zerolog.Logger) error {
	releaseCtx := context.WithoutCancel(ctx)
	if _, err := lease.Release(releaseCtx); err != nil {
		logger.WithLevel(zerolog.FatalLevel).
			Err(err).
			AnErr("cause", cause).
			Str("handle", lease.HandleKey()).
			Int("items", len(items)).
			Msg("failed to requeue batch; readings are still under the processing handle until RecoverStale runs")
		return shared.NewFatalOperatorError(
			fmt.Sprintf("failed to requeue %d readings from %s", len(items), lease.HandleKey()),
			fmt.Errorf("%w (after: %v)", err, cause),
		)
	}

	logger.Warn().Err(cause).Int("items", len(items)).Msg("anchoring failed; batch requeued")
	if shared.CodeOf(cause) == shared.ErrorCodeInternal {
		return shared.NewTransientError("anchoring failed; batch requeued", cause)
	}
	return fmt.Errorf("anchoring failed; batch requeued: %w", cause)
}

// RecoverStale returns the items of every processing handle to the pending
// queue. Call it once at startup, before any run, since it cannot tell a
// crashed run's handle from a live one.
func (j *Job) RecoverStale(ctx context.Context) (int, error) {
	handles, err := j.queue.ListKeys(ctx, queue.ProcessingKeyPrefix)
	if err != nil {
		return 0, shared.NewTransientError("failed to list processing handles", err)
	}

	recovered := 0
	for _, handle := range handles {
		lease := queue.Adopt(j.queue, j.pendingKey, handle)
		moved, err := lease.Release(ctx)
		if err != nil {
			return recovered, shared.NewFatalOperatorError(fmt.Sprintf("failed to recover processing handle %s", handle), err)
		}
		recovered += moved
		j.logger.Warn().Str("handle", handle).Int("items", moved).Msg("recovered orphaned batch")
	}
	return recovered, nil
}

// RunEvery runs the job on every tick until ctx is done.
func (j *Job) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return shared.NewConfigurationError("anchor interval must be positive", nil)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := j.Run(ctx)
			switch {
			case err == nil && result.Anchored:
			case err == nil:
				j.logger.Debug().Msg("nothing to anchor")
			case shared.IsCode(err, shared.ErrorCodeFatalOperator):
				j.logger.WithLevel(zerolog.FatalLevel).Err(err).Msg("scheduled anchoring needs operator attention")
			default:
				j.logger.Error().Err(err).Msg("scheduled anchoring failed; will retry next tick")
			}
		}
	}
}
