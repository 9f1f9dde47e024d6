package dispenser

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/octopus-network/oct-faucet-server/constdef"
	"github.com/octopus-network/oct-faucet-server/dal/do"
	"github.com/octopus-network/oct-faucet-server/faucetjson"
	"github.com/octopus-network/oct-faucet-server/model"
	"github.com/octopus-network/oct-faucet-server/nearclient"
	"github.com/octopus-network/oct-faucet-server/service"
)

const defaultCooldownWindow = 24 * time.Hour

// TweetResolver resolves a tweet URL into the tweet id and the account the
// tweet claims. Implemented by the twitter client.
type TweetResolver interface {
	ResolveProof(ctx context.Context, tweetURL string) (string, string, error)
}

// LedgerClient is the on-chain side of a disbursement. Implemented by the
// NEAR client. ViewAccount reports nonexistent accounts with
// nearclient.ErrAccountNotExist.
type LedgerClient interface {
	ViewAccount(ctx context.Context, accountID string) error
	EnsureStorageDeposit(ctx context.Context, contractID, accountID string, deposit *big.Int) error
	FtTransfer(ctx context.Context, contractID, accountID, amount string) (string, error)
}

// Config holds the options for a Dispenser.
type Config struct {
	// Targets are the token contracts funded by every successful claim.
	// At least one target is required.
	Targets []*model.TokenTarget

	// CooldownWindow is the minimum time between two claims by the same
	// account. Zero selects the 24 hour default.
	CooldownWindow time.Duration
}

// Dispenser runs the claim pipeline: resolve the tweet proof, check
// eligibility, fund every configured target and record the outcome.
//
// Eligibility and the record write happen under a per-account lock, so two
// concurrent claims for the same account cannot both pass the cooldown check
// before either has been recorded. Claims for distinct accounts proceed in
// parallel.
type Dispenser struct {
	cfg           *Config
	resolver      TweetResolver
	ledger        LedgerClient
	faucetService service.FaucetService
	db            *gorm.DB

	lockMtx      sync.Mutex
	accountLocks map[string]*accountLock

	subMtx      sync.Mutex
	subscribers []func(*model.Disbursement)
}

// accountLock is a reference counted mutex so entries can be removed from the
// lock table once the last claim for the account finishes.
type accountLock struct {
	mtx  sync.Mutex
	refs int
}

// New creates a Dispenser. Every target must carry a storage deposit.
func New(cfg *Config, resolver TweetResolver, ledger LedgerClient,
	faucetService service.FaucetService, db *gorm.DB) (*Dispenser, error) {

	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one token target is required")
	}
	for _, target := range cfg.Targets {
		if target.StorageDeposit == nil || target.StorageDeposit.Sign() <= 0 {
			return nil, fmt.Errorf("target %v has no storage deposit", target.ContractID)
		}
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = defaultCooldownWindow
	}

	return &Dispenser{
		cfg:           cfg,
		resolver:      resolver,
		ledger:        ledger,
		faucetService: faucetService,
		db:            db,
		accountLocks:  make(map[string]*accountLock),
	}, nil
}

// Subscribe registers a callback invoked after every successful disbursement.
// Callbacks run on the claim goroutine and must not block.
func (d *Dispenser) Subscribe(fn func(*model.Disbursement)) {
	d.subMtx.Lock()
	d.subscribers = append(d.subscribers, fn)
	d.subMtx.Unlock()
}

func (d *Dispenser) notify(disbursement *model.Disbursement) {
	d.subMtx.Lock()
	subscribers := make([]func(*model.Disbursement), len(d.subscribers))
	copy(subscribers, d.subscribers)
	d.subMtx.Unlock()

	for _, fn := range subscribers {
		fn(disbursement)
	}
}

func (d *Dispenser) lockAccount(account string) {
	d.lockMtx.Lock()
	l, ok := d.accountLocks[account]
	if !ok {
		l = &accountLock{}
		d.accountLocks[account] = l
	}
	l.refs++
	d.lockMtx.Unlock()

	l.mtx.Lock()
}

func (d *Dispenser) unlockAccount(account string) {
	d.lockMtx.Lock()
	l := d.accountLocks[account]
	l.refs--
	if l.refs == 0 {
		delete(d.accountLocks, account)
	}
	d.lockMtx.Unlock()

	l.mtx.Unlock()
}

// dbHandle binds the database handle to the request context so cancellation
// reaches the storage layer. Nil when the dispenser runs without a database.
func (d *Dispenser) dbHandle(ctx context.Context) *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.WithContext(ctx)
}

// fail wraps a user visible error into the uniform response envelope.
// Anything that is not an APIError is reported as an internal error so
// implementation detail never leaks to the claimant.
func fail(err error) *faucetjson.RequestResult {
	var apiErr *faucetjson.APIError
	if !errors.As(err, &apiErr) {
		apiErr = faucetjson.ErrInternal
	}
	return &faucetjson.RequestResult{Success: false, Message: apiErr.Message}
}

// transferOutcome is the result of funding one target.
type transferOutcome struct {
	receipt string
	err     error
}

// Handle runs one claim end to end and always returns a response envelope.
func (d *Dispenser) Handle(ctx context.Context, tweetURL, sourceIP string) *faucetjson.RequestResult {
	if strings.TrimSpace(tweetURL) == "" {
		return fail(faucetjson.ErrMissingParams)
	}

	tweetID, account, err := d.resolver.ResolveProof(ctx, tweetURL)
	if err != nil {
		return fail(err)
	}

	log.Debugf("Claim for %v via tweet %v from %v", account, tweetID, sourceIP)

	// Everything from the eligibility read to the record write runs under
	// the account lock. Without it two concurrent claims could both
	// observe the pre-claim record and both pass the cooldown check.
	d.lockAccount(account)
	defer d.unlockAccount(account)

	db := d.dbHandle(ctx)
	latest, err := d.faucetService.LatestByAccount(ctx, db, account)
	if err != nil {
		log.Errorf("Unable to load latest record for %v: %v", account, err)
		return fail(faucetjson.ErrInternal)
	}

	now := time.Now()
	decision := service.CheckEligibility(latest, tweetID, now, d.cfg.CooldownWindow)
	if !decision.Allow {
		log.Infof("Claim for %v denied: %v", account, decision.Reason)
		switch decision.Reason {
		case model.DenyDuplicateTweet:
			return fail(faucetjson.ErrDuplicateTweet)
		default:
			return fail(faucetjson.ErrCooldownActiveWithRemaining(decision.Remaining))
		}
	}

	if err := d.ledger.ViewAccount(ctx, account); err != nil {
		if errors.Is(err, nearclient.ErrAccountNotExist) {
			return fail(faucetjson.ErrAccountNotExist)
		}
		log.Errorf("Unable to view account %v: %v", account, err)
		return fail(faucetjson.ErrInternal)
	}

	// Fund every target concurrently. Each transfer that completes stands
	// on its own; a failed sibling is not compensated for, the claim as a
	// whole just reports failure and writes no record.
	outcomes := make([]transferOutcome, len(d.cfg.Targets))
	var wg sync.WaitGroup
	for i, target := range d.cfg.Targets {
		wg.Add(1)
		go func(i int, target *model.TokenTarget) {
			defer wg.Done()
			outcomes[i] = d.fundTarget(ctx, target, account)
		}(i, target)
	}
	wg.Wait()

	receipts := make([]string, len(outcomes))
	failed := false
	for i, outcome := range outcomes {
		if outcome.err != nil {
			log.Errorf("Transfer of %v to %v failed: %v",
				d.cfg.Targets[i].ContractID, account, outcome.err)
			failed = true
			continue
		}
		receipts[i] = outcome.receipt
	}
	if failed {
		return fail(faucetjson.ErrTransferFailed)
	}

	receipt := strings.Join(receipts, constdef.ReceiptDelimiter)
	record := &do.DisbursementRecord{
		Account: account,
		Link:    tweetURL,
		Receipt: receipt,
		Time:    now.Unix(),
		TweetID: &tweetID,
	}
	if sourceIP != "" {
		record.SourceIP = &sourceIP
	}
	if _, err := d.faucetService.CreateRecord(ctx, db, record); err != nil {
		// The transfers already happened. The account gets no cooldown
		// for this claim, which only favors the claimant, but the loss
		// of the audit trail needs an operator's attention.
		log.Criticalf("Funds transferred to %v (receipt %v) but record write "+
			"failed: %v", account, receipt, err)
		return fail(faucetjson.ErrInternal)
	}

	log.Infof("Disbursed to %v, receipt %v", account, receipt)
	d.notify(&model.Disbursement{
		Account: account,
		Link:    tweetURL,
		Receipt: receipt,
		Time:    record.Time,
		TweetID: tweetID,
	})

	// The success envelope carries no message; the receipt is served by the
	// record listing.
	return &faucetjson.RequestResult{Success: true}
}

// fundTarget registers the account on the target contract when needed, then
// transfers the configured amount.
func (d *Dispenser) fundTarget(ctx context.Context, target *model.TokenTarget, account string) transferOutcome {
	err := d.ledger.EnsureStorageDeposit(ctx, target.ContractID, account,
		target.StorageDeposit)
	if err != nil {
		return transferOutcome{err: err}
	}

	receipt, err := d.ledger.FtTransfer(ctx, target.ContractID, account, target.Amount)
	if err != nil {
		return transferOutcome{err: err}
	}
	return transferOutcome{receipt: receipt}
}

// RecentRecords returns the num most recent disbursements in the form served
// by the listing endpoint.
func (d *Dispenser) RecentRecords(ctx context.Context, num int) (*faucetjson.RecordsResult, error) {
	records, total, err := d.faucetService.RecentRecords(ctx, d.dbHandle(ctx), num)
	if err != nil {
		return nil, err
	}

	result := &faucetjson.RecordsResult{
		Data:  make([]faucetjson.RecordResult, 0, len(records)),
		Total: total,
	}
	for _, record := range records {
		result.Data = append(result.Data, faucetjson.RecordResult{
			Account: record.Account,
			Link:    record.Link,
			Receipt: record.Receipt,
			Time:    record.Time,
		})
	}
	return result, nil
}
