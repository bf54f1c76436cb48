package verify

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Outcome is the tri-state result of an ownership check. NotFound means
// the challenge record is definitely absent or wrong; Transient means
// the resolver could not answer and the check should be retried by the
// tenant, not charged against them.
type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeTransient Outcome = "transient"
)

type Result struct {
	Outcome Outcome
	Detail  string
}

// TXTLookup resolves the full TXT value set for a name. An empty slice
// with a nil error means the name resolved but carries no matching
// records (NXDOMAIN included).
type TXTLookup interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

type Checker struct {
	lookup  TXTLookup
	timeout time.Duration
}

func NewChecker(lookup TXTLookup, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{lookup: lookup, timeout: timeout}
}

// Check resolves the challenge record for domain and compares the
// expected token against the returned TXT value set. Comparison is
// exact set membership; substring or superstring matches fail.
func (c *Checker) Check(ctx context.Context, domain, expectedToken string) Result {
	name := RecordName(domain)

	values, err := c.lookupWithRetry(ctx, name)
	if err != nil {
		return Result{Outcome: OutcomeTransient, Detail: "DNS lookup failed for " + name}
	}

	for _, v := range values {
		if v == expectedToken {
			return Result{Outcome: OutcomeVerified, Detail: "found challenge token at " + name}
		}
	}
	if len(values) == 0 {
		return Result{Outcome: OutcomeNotFound, Detail: "no TXT record found at " + name}
	}
	return Result{Outcome: OutcomeNotFound, Detail: "TXT record exists at " + name + " but the token does not match"}
}

// lookupWithRetry performs the TXT query with a bounded timeout and at
// most one retry on timeout.
func (c *Checker) lookupWithRetry(ctx context.Context, name string) ([]string, error) {
	values, err := c.lookupOnce(ctx, name)
	if err != nil && isTimeout(err) {
		values, err = c.lookupOnce(ctx, name)
	}
	return values, err
}

func (c *Checker) lookupOnce(ctx context.Context, name string) ([]string, error) {
	lctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.lookup.LookupTXT(lctx, name)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Resolver queries a recursive resolver directly for TXT records.
type Resolver struct {
	client *dns.Client
	addr   string
}

// NewResolver builds a TXT lookup against the given resolver address
// ("host:port"). The client timeout bounds each exchange; Checker adds
// the per-attempt context deadline on top.
func NewResolver(addr string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		client: &dns.Client{Timeout: timeout},
		addr:   addr,
	}
}

func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.addr)
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		// fall through to collect answers
	case dns.RcodeNameError:
		// NXDOMAIN is a definite answer: the record does not exist.
		return []string{}, nil
	default:
		return nil, errors.New("resolver returned " + dns.RcodeToString[resp.Rcode] + " for " + name)
	}

	values := []string{}
	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		// A single TXT record can carry multiple character strings;
		// each is a distinct member of the value set.
		values = append(values, txt.Txt...)
	}
	return values, nil
}
