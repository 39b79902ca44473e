package ethcontract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/barkimedes/go-deepcopy"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	DefaultBlockPageSize = uint64(10_000)
	DefaultPollInterval  = 5 * time.Second

	ErrCopyFilter = "failed to copy log filter"
)

// Log is a log as returned by the node. Block and transaction fields are nil for pending logs.
type Log struct {
	Address             common.Address  `json:"address"`
	Topics              []common.Hash   `json:"topics"`
	Data                hexutil.Bytes   `json:"data"`
	BlockHash           *common.Hash    `json:"blockHash"`
	BlockNumber         *hexutil.Uint64 `json:"blockNumber"`
	TransactionHash     *common.Hash    `json:"transactionHash"`
	TransactionIndex    *hexutil.Uint64 `json:"transactionIndex"`
	LogIndex            *hexutil.Uint64 `json:"logIndex"`
	TransactionLogIndex *hexutil.Uint64 `json:"transactionLogIndex,omitempty"`
	LogType             *string         `json:"logType,omitempty"`
	Removed             *bool           `json:"removed,omitempty"`
}

func (l Log) IsRemoved() bool {
	return l.Removed != nil && *l.Removed
}

// Raw returns the part of the log that carries event data
func (l Log) Raw() RawLog {
	return RawLog{Topics: l.Topics, Data: l.Data}
}

// RawLog is the undecoded payload of an event
type RawLog struct {
	Topics []common.Hash
	Data   []byte
}

// Topic is a predicate on one indexed topic. The zero value matches anything.
type Topic struct {
	Hashes []common.Hash
}

func AnyTopic() Topic {
	return Topic{}
}

func ThisTopic(h common.Hash) Topic {
	return Topic{Hashes: []common.Hash{h}}
}

func OneOfTopics(hs ...common.Hash) Topic {
	return Topic{Hashes: append([]common.Hash{}, hs...)}
}

func (t Topic) IsAny() bool {
	return len(t.Hashes) == 0
}

func (t Topic) MarshalJSON() ([]byte, error) {
	switch len(t.Hashes) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(t.Hashes[0])
	}
	return json.Marshal(t.Hashes)
}

// Filter is the wire filter of eth_getLogs and eth_newFilter
type Filter struct {
	FromBlock *BlockNumber
	ToBlock   *BlockNumber
	BlockHash *common.Hash
	Addresses []common.Address
	Topics    []Topic
	Limit     *uint64
}

type filterJSON struct {
	FromBlock *BlockNumber `json:"fromBlock,omitempty"`
	ToBlock   *BlockNumber `json:"toBlock,omitempty"`
	BlockHash *common.Hash `json:"blockHash,omitempty"`
	Address   any          `json:"address,omitempty"`
	Topics    []Topic      `json:"topics,omitempty"`
	Limit     *uint64      `json:"limit,omitempty"`
}

// MarshalJSON sends a single address as a value and drops trailing wildcard topics
func (f Filter) MarshalJSON() ([]byte, error) {
	out := filterJSON{
		FromBlock: f.FromBlock,
		ToBlock:   f.ToBlock,
		BlockHash: f.BlockHash,
		Limit:     f.Limit,
	}
	switch len(f.Addresses) {
	case 0:
	case 1:
		out.Address = f.Addresses[0]
	default:
		out.Address = f.Addresses
	}
	topics := f.Topics
	for len(topics) > 0 && topics[len(topics)-1].IsAny() {
		topics = topics[:len(topics)-1]
	}
	out.Topics = topics
	return json.Marshal(out)
}

// window copies the filter for one page. Block bounds are not copied, every window sets its own.
func (f Filter) window(from uint64, to BlockNumber) (Filter, error) {
	c, err := deepcopy.Anything(f)
	if err != nil {
		return Filter{}, errors.Wrap(err, ErrCopyFilter)
	}
	w := c.(Filter)
	start := BlockNum(from)
	w.FromBlock = &start
	w.ToBlock = &to
	return w, nil
}

// LogFilterBuilder configures a query of past logs or a stream of new ones
type LogFilterBuilder struct {
	t             transport.Transport
	fromBlock     *BlockNumber
	toBlock       *BlockNumber
	blockHash     *common.Hash
	addresses     []common.Address
	topics        [4]Topic
	limit         *uint64
	blockPageSize *uint64
	pollInterval  *time.Duration
}

func NewLogFilterBuilder(t transport.Transport) *LogFilterBuilder {
	return &LogFilterBuilder{t: t}
}

func (b *LogFilterBuilder) FromBlock(block BlockNumber) *LogFilterBuilder {
	b.fromBlock = &block
	return b
}

func (b *LogFilterBuilder) ToBlock(block BlockNumber) *LogFilterBuilder {
	b.toBlock = &block
	return b
}

// BlockHash restricts the query to one block, it cannot be combined with a block range
func (b *LogFilterBuilder) BlockHash(hash common.Hash) *LogFilterBuilder {
	b.blockHash = &hash
	return b
}

func (b *LogFilterBuilder) Address(addresses ...common.Address) *LogFilterBuilder {
	b.addresses = append([]common.Address{}, addresses...)
	return b
}

// Topic0 filters on the first topic, for non anonymous events it is the event signature
func (b *LogFilterBuilder) Topic0(t Topic) *LogFilterBuilder { return b.topic(0, t) }
func (b *LogFilterBuilder) Topic1(t Topic) *LogFilterBuilder { return b.topic(1, t) }
func (b *LogFilterBuilder) Topic2(t Topic) *LogFilterBuilder { return b.topic(2, t) }
func (b *LogFilterBuilder) Topic3(t Topic) *LogFilterBuilder { return b.topic(3, t) }

func (b *LogFilterBuilder) topic(i int, t Topic) *LogFilterBuilder {
	b.topics[i] = t
	return b
}

// Limit caps the number of logs returned, a non standard extension. Paginated queries ignore it.
func (b *LogFilterBuilder) Limit(n uint64) *LogFilterBuilder {
	b.limit = &n
	return b
}

// BlockPageSize is the number of blocks per page of a paginated query
func (b *LogFilterBuilder) BlockPageSize(n uint64) *LogFilterBuilder {
	b.blockPageSize = &n
	return b
}

func (b *LogFilterBuilder) PollInterval(d time.Duration) *LogFilterBuilder {
	b.pollInterval = &d
	return b
}

func (b *LogFilterBuilder) Clone() *LogFilterBuilder {
	c := *b
	c.addresses = append([]common.Address{}, b.addresses...)
	return &c
}

// Filter compiles the builder into its wire form
func (b *LogFilterBuilder) Filter() (Filter, error) {
	if b.blockHash != nil && (b.fromBlock != nil || b.toBlock != nil) {
		return Filter{}, &ExecutionError{Kind: ParseFailure, Err: errors.New(ErrInvalidBlockRange)}
	}
	f := Filter{
		FromBlock: b.fromBlock,
		ToBlock:   b.toBlock,
		BlockHash: b.blockHash,
		Addresses: b.addresses,
		Limit:     b.limit,
	}
	for _, t := range b.topics {
		f.Topics = append(f.Topics, t)
	}
	return f, nil
}

// PastLogs reads all matching logs with a single eth_getLogs request
func (b *LogFilterBuilder) PastLogs(ctx context.Context) ([]Log, error) {
	f, err := b.Filter()
	if err != nil {
		return nil, err
	}
	return getLogs(ctx, b.t, f)
}

func getLogs(ctx context.Context, t transport.Transport, f Filter) ([]Log, error) {
	var logs []Log
	if err := transport.Call(ctx, t, &logs, "eth_getLogs", f); err != nil {
		return nil, ToExecutionError(err)
	}
	return logs, nil
}

// PastLogsPages reads past logs in windows of BlockPageSize blocks. Empty pages are skipped.
func (b *LogFilterBuilder) PastLogsPages() *LogPages {
	return &LogPages{b: b.Clone()}
}

// LogPages iterates over the pages of a paginated query
type LogPages struct {
	b *LogFilterBuilder

	started  bool
	done     bool
	paging   bool
	filter   Filter
	toBlock  BlockNumber
	pageSize uint64
	next     uint64
	end      uint64

	page []Log
	err  error
}

func (p *LogPages) init(ctx context.Context) error {
	if p.b.blockPageSize != nil && *p.b.blockPageSize == 0 {
		return &ExecutionError{Kind: ParseFailure, Err: errors.New(ErrZeroPageSize)}
	}
	p.pageSize = DefaultBlockPageSize
	if p.b.blockPageSize != nil {
		p.pageSize = *p.b.blockPageSize
	}
	p.b.limit = nil
	f, err := p.b.Filter()
	if err != nil {
		return err
	}
	p.filter = f

	from, to := Latest, Latest
	if p.b.fromBlock != nil {
		from = *p.b.fromBlock
	}
	if p.b.toBlock != nil {
		to = *p.b.toBlock
	}
	p.toBlock = to

	start, startKnown := uint64(0), false
	switch {
	case from.IsEarliest():
		startKnown = true
	default:
		start, startKnown = from.Number()
	}
	// a block hash pins the query to a single block
	if p.b.blockHash != nil {
		startKnown = false
	}
	end, endKnown := to.Number()
	// an earliest end is left to the node
	switch {
	case !startKnown:
	case to.IsLatest() || to.IsPending():
		latest, err := fetchBlockNumber(ctx, p.b.t)
		if err != nil {
			return err
		}
		end, endKnown = latest, true
	}
	p.paging = startKnown && endKnown
	p.next, p.end = start, end
	L.Debug().
		Bool("Paginated", p.paging).
		Uint64("From", start).
		Uint64("To", end).
		Uint64("PageSize", p.pageSize).
		Msg("Querying past logs")
	return nil
}

// Next fetches the next non empty page and reports whether there is one
func (p *LogPages) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if !p.started {
		p.started = true
		if err := p.init(ctx); err != nil {
			p.err = err
			return false
		}
	}
	if !p.paging {
		p.done = true
		logs, err := getLogs(ctx, p.b.t, p.filter)
		if err != nil {
			p.err = err
			return false
		}
		p.page = logs
		return len(logs) > 0
	}
	for !p.done && p.next <= p.end {
		pageEnd := p.end
		if p.end-p.next >= p.pageSize {
			pageEnd = p.next + p.pageSize - 1
		}
		to := BlockNum(pageEnd)
		if pageEnd == p.end {
			to = p.toBlock
		}
		window, err := p.filter.window(p.next, to)
		if err != nil {
			p.err = err
			return false
		}
		logs, err := getLogs(ctx, p.b.t, window)
		if err != nil {
			p.err = err
			return false
		}
		L.Trace().Uint64("From", p.next).Str("To", to.String()).Int("Logs", len(logs)).Msg("Fetched log page")
		if pageEnd == p.end {
			p.done = true
		} else {
			p.next = pageEnd + 1
		}
		if len(logs) == 0 {
			continue
		}
		p.page = logs
		return true
	}
	p.done = true
	return false
}

func (p *LogPages) Page() []Log {
	return p.page
}

func (p *LogPages) Err() error {
	return p.err
}

// All drains the iterator
func (p *LogPages) All(ctx context.Context) ([]Log, error) {
	var out []Log
	for p.Next(ctx) {
		out = append(out, p.Page()...)
	}
	return out, p.Err()
}

// Stream installs a log filter on the node and polls it for changes
func (b *LogFilterBuilder) Stream(ctx context.Context) (*LogStream, error) {
	f, err := b.Filter()
	if err != nil {
		return nil, err
	}
	var id string
	if err := transport.Call(ctx, b.t, &id, "eth_newFilter", f); err != nil {
		return nil, ToExecutionError(err)
	}
	interval := DefaultPollInterval
	if b.pollInterval != nil {
		interval = *b.pollInterval
	}
	L.Debug().Str("Filter", id).Dur("PollInterval", interval).Msg("Installed log filter")
	return &LogStream{t: b.t, id: id, interval: interval}, nil
}

// LogStream yields logs as the node reports them, including logs removed by a reorg
type LogStream struct {
	t        transport.Transport
	id       string
	interval time.Duration
	polled   bool
	buffered []Log
	current  Log
	err      error
	closed   bool
}

// Next blocks until a log is available, the context is done or polling fails
func (s *LogStream) Next(ctx context.Context) bool {
	if s.err != nil || s.closed {
		return false
	}
	for len(s.buffered) == 0 {
		if s.polled {
			if err := sleep(ctx, s.interval); err != nil {
				s.err = err
				return false
			}
		}
		s.polled = true
		var logs []Log
		if err := transport.Call(ctx, s.t, &logs, "eth_getFilterChanges", s.id); err != nil {
			s.err = ToExecutionError(err)
			return false
		}
		s.buffered = logs
	}
	s.current = s.buffered[0]
	s.buffered = s.buffered[1:]
	return true
}

func (s *LogStream) Log() Log {
	return s.current
}

func (s *LogStream) Err() error {
	return s.err
}

// Close uninstalls the filter. Failing to do so only leaks the filter until the node expires it.
func (s *LogStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var ok bool
	if err := transport.Call(context.Background(), s.t, &ok, "eth_uninstallFilter", s.id); err != nil {
		L.Warn().Err(err).Str("Filter", s.id).Msg("Failed to uninstall log filter")
		return ToExecutionError(err)
	}
	return nil
}
