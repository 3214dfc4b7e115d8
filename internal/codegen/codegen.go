package codegen

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	gonanoid "github.com/jaevor/go-nanoid"
)

const (
	PrimeMin = 100000
	PrimeMax = 999999

	CodeLength   = 8
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultMaxAttempts bounds the unique-pair retry loop. With ~68,906
	// six-digit primes the pair space holds ~2.3 billion unordered pairs, so
	// the bound only matters when the issued set is pathological.
	DefaultMaxAttempts = 1000
)

// ErrPairsExhausted is returned when the retry budget runs out before an
// unissued pair is found.
var ErrPairsExhausted = errors.New("prime pair attempts exhausted")

var newCode func() string

func init() {
	g, err := gonanoid.CustomASCII(codeAlphabet, CodeLength)
	if err != nil {
		panic(fmt.Sprintf("codegen: bad code alphabet: %v", err))
	}
	newCode = g
}

// NewPurchaseCode returns an 8-character code over [A-Z0-9]. Uniqueness
// against previously issued codes is not checked.
func NewPurchaseCode() string {
	return newCode()
}

// IsPrime trial-divides by 6k±1 candidates up to √n.
func IsPrime(n int) bool {
	if n <= 1 {
		return false
	}
	if n == 2 || n == 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := 5; i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// SixDigitPrime rejection-samples until a prime lands in [100000, 999999].
func SixDigitPrime() int {
	for {
		n := PrimeMin + rand.Intn(PrimeMax-PrimeMin+1)
		if IsPrime(n) {
			return n
		}
	}
}

// PrimePair returns two distinct six-digit primes and their product.
func PrimePair() (a, b int, product int64) {
	a = SixDigitPrime()
	b = SixDigitPrime()
	for b == a {
		b = SixDigitPrime()
	}
	return a, b, int64(a) * int64(b)
}

// IssuedSet holds the normalized keys of every prime pair already written to
// the spreadsheet, plus the pairs issued so far within the current request.
type IssuedSet map[string]struct{}

func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(a) + "-" + strconv.Itoa(b)
}

func (s IssuedSet) Add(a, b int) {
	s[pairKey(a, b)] = struct{}{}
}

func (s IssuedSet) Has(a, b int) bool {
	_, ok := s[pairKey(a, b)]
	return ok
}

// ParseIssuedRows builds an IssuedSet from two-column spreadsheet rows.
// Rows that are short or fail to parse are skipped.
func ParseIssuedRows(rows [][]interface{}) IssuedSet {
	issued := make(IssuedSet, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		a, okA := cellInt(row[0])
		b, okB := cellInt(row[1])
		if !okA || !okB {
			continue
		}
		issued.Add(a, b)
	}
	return issued
}

func cellInt(cell interface{}) (int, bool) {
	switch v := cell.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// UniquePair generates pairs until one is absent from issued, then records it
// in issued so that later calls within the same batch cannot collide.
func UniquePair(issued IssuedSet, maxAttempts int) (a, b int, product int64, err error) {
	for i := 0; i < maxAttempts; i++ {
		a, b, product = PrimePair()
		if issued.Has(a, b) {
			continue
		}
		issued.Add(a, b)
		return a, b, product, nil
	}
	return 0, 0, 0, ErrPairsExhausted
}
