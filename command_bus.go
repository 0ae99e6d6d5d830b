package eventsourcing

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// queuedCommand represents a command enqueued in the command bus for
// processing, together with the caller's context and a response channel.
type queuedCommand struct {
	Ctx        context.Context
	Command    Command
	ResponseCh chan<- commandResult
}

// commandResult carries the handling outcome back to the dispatcher.
type commandResult struct {
	Result AppendResult
	Err    error
}

// CommandBus is an in-memory, type-safe command dispatcher.
//
// Commands are sharded by aggregate id, so two commands for the same
// aggregate never run concurrently, which keeps optimistic concurrency
// conflicts to genuine cross-process races. The bus supports typed
// registration via RegisterHandler, panic recovery inside handlers, and a
// graceful Stop that waits for in-flight commands.
type CommandBus struct {
	handlers   map[string]func(ctx context.Context, command Command) (AppendResult, error)
	queues     []chan queuedCommand
	wg         sync.WaitGroup
	mu         sync.RWMutex
	shardCount int

	// stopMu orders Dispatch's wg.Add against Stop's wg.Wait: Add only
	// happens under the read lock with stopped still false, and Stop
	// flips stopped under the write lock before waiting.
	stopMu  sync.RWMutex
	stopped bool
}

// NewCommandBus creates a command bus with the given per-shard queue
// buffer and shard count. The shard workers start immediately.
func NewCommandBus(bufferSize int, shardCount int) *CommandBus {

	if shardCount <= 0 {
		shardCount = 1
	}

	bus := &CommandBus{
		queues:     make([]chan queuedCommand, shardCount),
		handlers:   make(map[string]func(ctx context.Context, command Command) (AppendResult, error)),
		shardCount: shardCount,
	}

	for i := 0; i < shardCount; i++ {
		bus.queues[i] = make(chan queuedCommand, bufferSize)
		go bus.worker(bus.queues[i])
	}

	return bus
}

// Dispatch enqueues a command for processing by the registered handler and
// waits for the result. It is safe to call concurrently.
//
// Returns an error immediately if the bus has been stopped, and honors
// context cancellation both before enqueueing and while waiting.
func (b *CommandBus) Dispatch(ctx context.Context, cmd Command) (AppendResult, error) {
	b.stopMu.RLock()
	if b.stopped {
		b.stopMu.RUnlock()
		return AppendResult{}, fmt.Errorf("command bus is stopped")
	}
	b.wg.Add(1)
	b.stopMu.RUnlock()
	defer b.wg.Done()

	responseCh := make(chan commandResult, 1)

	shard := b.getShard(cmd.AggregateID())

	select {
	case b.queues[shard] <- queuedCommand{Ctx: ctx, Command: cmd, ResponseCh: responseCh}:
		select {
		case result := <-responseCh:
			return result.Result, result.Err
		case <-ctx.Done():
			return AppendResult{}, ctx.Err()
		}
	case <-ctx.Done():
		return AppendResult{}, ctx.Err()
	}
}

// worker processes commands from a single shard queue.
func (b *CommandBus) worker(queue chan queuedCommand) {
	for cmd := range queue {
		cmdName := fmt.Sprintf("%T", cmd.Command)

		b.mu.RLock()
		h, exists := b.handlers[cmdName]
		b.mu.RUnlock()

		if !exists {
			cmd.ResponseCh <- commandResult{
				Err: fmt.Errorf("no handler for command %s: %w", cmdName, ErrHandlerNotFound),
			}
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					cmd.ResponseCh <- commandResult{
						Err: fmt.Errorf("panic in handler: %v", r),
					}
				}
			}()

			res, err := h(cmd.Ctx, cmd.Command)
			cmd.ResponseCh <- commandResult{Result: res, Err: err}
		}()
	}
}

func (b *CommandBus) getShard(aggregateID string) int {
	hash := fnv.New32a()
	hash.Write([]byte(aggregateID))
	return int(hash.Sum32()) % b.shardCount
}

// RegisterHandler adds a new typed command handler to the bus.
//
// The command type name is derived automatically, so no registration
// strings are needed. Panics if a handler is already registered for the
// same command type.
//
// Example:
//
//	RegisterHandler(bus, registerUserHandler)
func RegisterHandler[C Command](b *CommandBus, handler CommandHandler[C]) {
	var zero C
	cmdName := fmt.Sprintf("%T", zero)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[cmdName]; exists {
		panic(fmt.Sprintf("handler already registered for command type %s", cmdName))
	}

	b.handlers[cmdName] = func(ctx context.Context, cmd Command) (AppendResult, error) {
		c, ok := cmd.(C)
		if !ok {
			return AppendResult{}, fmt.Errorf("expected command type %s but got %T", cmdName, cmd)
		}
		return handler(ctx, c)
	}
}

// Stop shuts down the CommandBus safely: it stops accepting new commands,
// waits for all in-flight commands to finish, then closes the shard
// queues. Calling Stop more than once is a no-op.
func (b *CommandBus) Stop() {
	b.stopMu.Lock()
	if b.stopped {
		b.stopMu.Unlock()
		return
	}
	b.stopped = true
	b.stopMu.Unlock()

	b.wg.Wait()
	for _, q := range b.queues {
		close(q)
	}
}
