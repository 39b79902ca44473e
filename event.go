package ethcontract

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/ethcontract/tokens"
	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	ErrTopicIndex     = "topic index is not an indexed parameter of the event"
	ErrEventSignature = "log topic does not match the event signature"
	ErrTopicCount     = "log topic count does not match the indexed event parameters"
)

// EventMetadata locates a log on chain
type EventMetadata struct {
	Address             common.Address
	BlockHash           common.Hash
	BlockNumber         uint64
	TransactionHash     common.Hash
	TransactionIndex    uint64
	LogIndex            uint64
	TransactionLogIndex *uint64
	LogType             *string
}

// Event is a decoded log. Meta is nil for pending logs. Removed is only ever set on streamed
// events, when a reorg dropped the log.
type Event[E any] struct {
	Data    E
	Meta    *EventMetadata
	Removed bool
}

func (e Event[E]) IsAdded() bool   { return !e.Removed }
func (e Event[E]) IsRemoved() bool { return e.Removed }

func metadataOf(l Log) *EventMetadata {
	if l.BlockHash == nil || l.BlockNumber == nil || l.TransactionHash == nil ||
		l.TransactionIndex == nil || l.LogIndex == nil {
		return nil
	}
	m := &EventMetadata{
		Address:          l.Address,
		BlockHash:        *l.BlockHash,
		BlockNumber:      uint64(*l.BlockNumber),
		TransactionHash:  *l.TransactionHash,
		TransactionIndex: uint64(*l.TransactionIndex),
		LogIndex:         uint64(*l.LogIndex),
		LogType:          l.LogType,
	}
	if l.TransactionLogIndex != nil {
		i := uint64(*l.TransactionLogIndex)
		m.TransactionLogIndex = &i
	}
	return m
}

// ParseLogFunc turns a raw log into an event payload
type ParseLogFunc[E any] func(RawLog) (E, error)

func pastEvent[E any](l Log, parse ParseLogFunc[E]) (Event[E], error) {
	if l.IsRemoved() {
		return Event[E]{}, &ExecutionError{Kind: RemovedLog}
	}
	data, err := parse(l.Raw())
	if err != nil {
		return Event[E]{}, err
	}
	return Event[E]{Data: data, Meta: metadataOf(l)}, nil
}

func streamedEvent[E any](l Log, parse ParseLogFunc[E]) (Event[E], error) {
	data, err := parse(l.Raw())
	if err != nil {
		return Event[E]{}, err
	}
	return Event[E]{Data: data, Meta: metadataOf(l), Removed: l.IsRemoved()}, nil
}

// DecodeEventLog matches a raw log against an event and returns its parameters in declaration
// order. Indexed dynamic parameters come back as their 32 byte hash.
func DecodeEventLog(event abi.Event, raw RawLog) (tokens.Tuple, error) {
	topics := raw.Topics
	if !event.Anonymous {
		if len(topics) == 0 || topics[0] != event.ID {
			return nil, &AbiError{Kind: InvalidData, Detail: ErrEventSignature}
		}
		topics = topics[1:]
	}
	var (
		indexed    []abi.Argument
		nonIndexed abi.Arguments
	)
	for _, in := range event.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		} else {
			nonIndexed = append(nonIndexed, in)
		}
	}
	if len(indexed) != len(topics) {
		return nil, &AbiError{Kind: InvalidData, Detail: ErrTopicCount}
	}
	values, err := tokens.Decode(tokens.ArgumentTypes(nonIndexed), raw.Data)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Err: err}
	}
	out := make(tokens.Tuple, 0, len(event.Inputs))
	var ti, vi int
	for _, in := range event.Inputs {
		if in.Indexed {
			tok, err := tokens.DecodeTopic(in.Type, topics[ti])
			if err != nil {
				return nil, &AbiError{Kind: InvalidData, Err: err}
			}
			out = append(out, tok)
			ti++
			continue
		}
		out = append(out, values[vi])
		vi++
	}
	return out, nil
}

// ParseEvent decodes a log of the event into E, a struct with one field per parameter, or a
// tokens.Tuple
func ParseEvent[E any](event abi.Event, raw RawLog) (E, error) {
	var out E
	tuple, err := DecodeEventLog(event, raw)
	if err != nil {
		return out, err
	}
	if err := tokens.FromToken(tuple, &out); err != nil {
		return out, &AbiError{Kind: InvalidData, Err: err}
	}
	return out, nil
}

// EventBuilder queries or streams the logs of one event of a contract
type EventBuilder[E any] struct {
	event  abi.Event
	filter *LogFilterBuilder
	err    error
}

// NewEventBuilder filters logs of event emitted by address. The signature topic is set unless
// the event is anonymous.
func NewEventBuilder[E any](t transport.Transport, event abi.Event, address common.Address) *EventBuilder[E] {
	filter := NewLogFilterBuilder(t).Address(address)
	if !event.Anonymous {
		filter.Topic0(ThisTopic(event.ID))
	}
	return &EventBuilder[E]{event: event, filter: filter}
}

func (b *EventBuilder[E]) Signature() string {
	return b.event.Sig
}

func (b *EventBuilder[E]) FromBlock(block BlockNumber) *EventBuilder[E] {
	b.filter.FromBlock(block)
	return b
}

func (b *EventBuilder[E]) ToBlock(block BlockNumber) *EventBuilder[E] {
	b.filter.ToBlock(block)
	return b
}

func (b *EventBuilder[E]) BlockHash(hash common.Hash) *EventBuilder[E] {
	b.filter.BlockHash(hash)
	return b
}

// Topic filters on the n-th indexed parameter: no value matches anything, one value matches
// that value and several match any of them
func (b *EventBuilder[E]) Topic(n int, values ...any) *EventBuilder[E] {
	position := n
	if !b.event.Anonymous {
		position++
	}
	var param *abi.Argument
	i := 0
	for _, in := range b.event.Inputs {
		if !in.Indexed {
			continue
		}
		if i == n {
			p := in
			param = &p
			break
		}
		i++
	}
	if param == nil || position > 3 {
		b.setErr(&AbiError{Kind: InvalidData, Detail: fmt.Sprintf("%s: %d", ErrTopicIndex, n)})
		return b
	}
	hashes := make([]common.Hash, 0, len(values))
	for _, v := range values {
		tok, err := tokens.IntoToken(v)
		if err != nil {
			b.setErr(&AbiError{Kind: InvalidData, Err: err})
			return b
		}
		h, err := tokens.EncodeTopic(param.Type, tok)
		if err != nil {
			b.setErr(&AbiError{Kind: InvalidData, Err: err})
			return b
		}
		hashes = append(hashes, h)
	}
	b.filter.topic(position, Topic{Hashes: hashes})
	return b
}

func (b *EventBuilder[E]) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *EventBuilder[E]) Limit(n uint64) *EventBuilder[E] {
	b.filter.Limit(n)
	return b
}

func (b *EventBuilder[E]) BlockPageSize(n uint64) *EventBuilder[E] {
	b.filter.BlockPageSize(n)
	return b
}

func (b *EventBuilder[E]) PollInterval(d time.Duration) *EventBuilder[E] {
	b.filter.PollInterval(d)
	return b
}

// Filter exposes the underlying log filter builder
func (b *EventBuilder[E]) Filter() *LogFilterBuilder {
	return b.filter
}

func (b *EventBuilder[E]) parse(raw RawLog) (E, error) {
	return ParseEvent[E](b.event, raw)
}

// Query reads past events with a single request
func (b *EventBuilder[E]) Query(ctx context.Context) ([]Event[E], error) {
	if b.err != nil {
		return nil, eventError(b.event.Sig, b.err)
	}
	logs, err := b.filter.PastLogs(ctx)
	if err != nil {
		return nil, eventError(b.event.Sig, err)
	}
	out := make([]Event[E], 0, len(logs))
	for _, l := range logs {
		ev, err := pastEvent(l, b.parse)
		if err != nil {
			return nil, eventError(b.event.Sig, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// QueryPaginated reads past events page by page
func (b *EventBuilder[E]) QueryPaginated() *EventIterator[E] {
	return &EventIterator[E]{pages: b.filter.PastLogsPages(), parse: b.parse, sig: b.event.Sig, err: b.err}
}

// Stream polls the node for new events
func (b *EventBuilder[E]) Stream(ctx context.Context) (*EventStream[E], error) {
	if b.err != nil {
		return nil, eventError(b.event.Sig, b.err)
	}
	s, err := b.filter.Stream(ctx)
	if err != nil {
		return nil, eventError(b.event.Sig, err)
	}
	return &EventStream[E]{logs: s, parse: b.parse, sig: b.event.Sig}, nil
}

// EventIterator walks the events of a paginated query
type EventIterator[E any] struct {
	pages   *LogPages
	parse   ParseLogFunc[E]
	sig     string
	pending []Log
	current Event[E]
	err     error
}

func (it *EventIterator[E]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for len(it.pending) == 0 {
		if !it.pages.Next(ctx) {
			if err := it.pages.Err(); err != nil {
				it.err = err
			}
			return false
		}
		it.pending = it.pages.Page()
	}
	ev, err := pastEvent(it.pending[0], it.parse)
	it.pending = it.pending[1:]
	if err != nil {
		it.err = err
		return false
	}
	it.current = ev
	return true
}

func (it *EventIterator[E]) Event() Event[E] {
	return it.current
}

func (it *EventIterator[E]) Err() error {
	if it.err == nil {
		return nil
	}
	if it.sig == "" {
		return ToExecutionError(it.err)
	}
	return eventError(it.sig, it.err)
}

// All drains the iterator
func (it *EventIterator[E]) All(ctx context.Context) ([]Event[E], error) {
	var out []Event[E]
	for it.Next(ctx) {
		out = append(out, it.Event())
	}
	return out, it.Err()
}

// EventStream yields added and removed events from a node side filter
type EventStream[E any] struct {
	logs    *LogStream
	parse   ParseLogFunc[E]
	sig     string
	current Event[E]
	err     error
}

func (s *EventStream[E]) Next(ctx context.Context) bool {
	if s.err != nil || !s.logs.Next(ctx) {
		return false
	}
	ev, err := streamedEvent(s.logs.Log(), s.parse)
	if err != nil {
		s.err = err
		return false
	}
	s.current = ev
	return true
}

func (s *EventStream[E]) Event() Event[E] {
	return s.current
}

func (s *EventStream[E]) Err() error {
	err := s.err
	if err == nil {
		err = s.logs.Err()
	}
	if err == nil {
		return nil
	}
	if s.sig == "" {
		return ToExecutionError(err)
	}
	return eventError(s.sig, err)
}

func (s *EventStream[E]) Close() error {
	return s.logs.Close()
}
