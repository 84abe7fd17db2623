package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SigningPrefix anchors the canonical message so a relay signature cannot be
// replayed against a different protocol surface.
const SigningPrefix = "p3-global-relay:"

// ReplayWindow bounds the allowed drift between a manifest timestamp and
// server time, in either direction.
const ReplayWindow = 5 * time.Minute

var (
	ErrTimestampOutOfWindow = errors.New("timestamp expired or too far in future")
	ErrWalletMismatch       = errors.New("signature does not match claimed wallet")
)

// CanonicalMessage builds the deterministic string a node must sign to prove
// control of its wallet. The wallet is lowercased so checksum casing does not
// change the signed bytes.
func CanonicalMessage(nodeID, wallet string, timestamp int64) string {
	return SigningPrefix + nodeID + ":" + strings.ToLower(wallet) + ":" + strconv.FormatInt(timestamp, 10)
}

// WalletVerifier checks that a claimed wallet authored a canonical message.
// It is stateless apart from a TTL cache of recovered signers, which lets a
// node refresh its registration without paying for a second recovery.
type WalletVerifier struct {
	window time.Duration
	now    func() time.Time
	cache  *expirable.LRU[string, common.Address]
}

func NewWalletVerifier() *WalletVerifier {
	return &WalletVerifier{
		window: ReplayWindow,
		now:    time.Now,
		cache:  expirable.NewLRU[string, common.Address](1024, nil, ReplayWindow),
	}
}

// NewWalletVerifierAt pins the verifier clock; used by tests.
func NewWalletVerifierAt(now func() time.Time) *WalletVerifier {
	v := NewWalletVerifier()
	v.now = now
	return v
}

// Verify returns nil when signature proves the wallet signed the canonical
// message for (nodeID, wallet, timestamp) and the timestamp is inside the
// replay window. Every failure mode, including malformed signatures, comes
// back as an error rather than a panic.
func (v *WalletVerifier) Verify(nodeID, wallet string, timestamp int64, signature string) error {
	drift := v.now().Sub(time.UnixMilli(timestamp))
	if drift > v.window || drift < -v.window {
		return ErrTimestampOutOfWindow
	}
	sig, err := decodeSignature(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWalletMismatch, err)
	}
	msg := CanonicalMessage(nodeID, wallet, timestamp)
	recovered, err := v.recover(msg, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWalletMismatch, err)
	}
	if recovered != common.HexToAddress(wallet) {
		return ErrWalletMismatch
	}
	return nil
}

func (v *WalletVerifier) recover(msg string, sig []byte) (common.Address, error) {
	key := msg + "|" + hex.EncodeToString(sig)
	if addr, ok := v.cache.Get(key); ok {
		return addr, nil
	}
	// personal_sign emits V as 27/28; SigToPub wants 0/1
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), s)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.PubkeyToAddress(*pub)
	v.cache.Add(key, addr)
	return addr, nil
}

func decodeSignature(signature string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signature is not hex: %v", err)
	}
	if len(raw) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(raw))
	}
	return raw, nil
}
