package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultSubwallet is the standard wallet v4 subwallet id on the basechain.
	DefaultSubwallet = 698983191

	mnemonicWords    = 24
	derivationRounds = 100000
	versionRounds    = derivationRounds / 256

	saltDefaultSeed = "TON default seed"
	saltSeedVersion = "TON seed version"
)

// walletCodeBOC is the compiled wallet v4r2 contract code.
const walletCodeBOC = "te6cckECFAEAAtQAART/APSkE/S88sgLAQIBIAIDAgFIBAUE+PKDCNcYINMf0x/THwL4I7vyZO1E0NMf0x/T//QE0VFDuvKhUVG68qIF+QFUEGT5EPKj+AAkpMjLH1JAyx9SMMv/UhD0AMntVPgPAdMHIcAAn2xRkyDXSpbTB9QC+wDoMOAhwAHjACHAAuMAAcADkTDjDQOkyMsfEssfy/8QERITAubQAdDTAyFxsJJfBOAi10nBIJJfBOAC0x8hghBwbHVnvSKCEGRzdHK9sJJfBeAD+kAwIPpEAcjKB8v/ydDtRNCBAUDXIfQEMFyBAQj0Cm+hMbOSXwfgBdM/yCWCEHBsdWe6kjgw4w0DghBkc3RyupJfBuMNBgcCASAICQB4AfoA9AQw+CdvIjBQCqEhvvLgUIIQcGx1Z4MesXCAGFAEywUmzxZY+gIZ9ADLaRfLH1Jgyz8gyYBA+wAGAIpQBIEBCPRZMO1E0IEBQNcgyAHPFvQAye1UAXKwjiOCEGRzdHKDHrFwgBhQBcsFUAPPFiP6AhPLassfyz/JgED7AJJfA+ICASAKCwBZvSQrb2omhAgKBrkPoCGEcNQICEekk30pkQzmkD6f+YN4EoAbeBAUiYcVnzGEAgFYDA0AEbjJftRNDXCx+AA9sp37UTQgQFA1yH0BDACyMoHy//J0AGBAQj0Cm+hMYAIBIA4PABmtznaiaEAga5Drhf/AABmvHfaiaEAQa5DrhY/AAG7SB/oA1NQi+QAFyMoHFcv/ydB3dIAYyMsFywIizxZQBfoCFMtrEszMyXP7AMhAFIEBCPRR8qcCAHCBAQjXGPoA0z/IVCBHgQEI9FHyp4IQbm90ZXB0gBjIywXLAlAGzxZQBPoCFMtqEssfyz/Jc/sAAgBsgQEI1xj6ANM/MFIkgQEI9Fnyp4IQZHN0cnB0gBjIywXLAlAFzxZQA/oCE8tqyx8Syz/Jc/sAAAr0AMntVGliJeU="

// SigningContext holds the key material for one signing operation. It is
// derived fresh from the recovery phrase every time and never persisted.
type SigningContext struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Address    *address.Address
	StateInit  *cell.Cell
}

// Derive recomputes the wallet keypair, state init and address from a
// 24-word recovery phrase.
func Derive(mnemonic string) (*SigningContext, error) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(mnemonic)))
	if len(words) != mnemonicWords {
		return nil, fmt.Errorf("recovery phrase must contain %d words, got %d", mnemonicWords, len(words))
	}
	for _, w := range words {
		if _, ok := bip39.GetWordIndex(w); !ok {
			return nil, fmt.Errorf("recovery phrase contains an unknown word")
		}
	}
	phrase := strings.Join(words, " ")

	mac := hmac.New(sha512.New, []byte(phrase))
	mac.Write([]byte(""))
	entropy := mac.Sum(nil)

	// Basic (non-password) seeds carry a zero version byte
	version := pbkdf2.Key(entropy, []byte(saltSeedVersion), versionRounds, 64, sha512.New)
	if version[0] != 0 {
		return nil, fmt.Errorf("recovery phrase failed the seed version check")
	}

	seed := pbkdf2.Key(entropy, []byte(saltDefaultSeed), derivationRounds, 64, sha512.New)
	priv := ed25519.NewKeyFromSeed(seed[:32])
	pub := priv.Public().(ed25519.PublicKey)

	stateInit, err := buildStateInit(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to build wallet state init: %v", err)
	}

	addr := address.NewAddress(0, 0, stateInit.Hash())

	return &SigningContext{
		PublicKey:  pub,
		PrivateKey: priv,
		Address:    addr,
		StateInit:  stateInit,
	}, nil
}

// buildStateInit assembles the v4r2 state init: contract code plus the
// initial data cell (seqno 0, subwallet id, public key, empty plugin dict).
func buildStateInit(pub ed25519.PublicKey) (*cell.Cell, error) {
	raw, err := base64.StdEncoding.DecodeString(walletCodeBOC)
	if err != nil {
		return nil, fmt.Errorf("bad wallet code encoding: %v", err)
	}
	code, err := cell.FromBOC(raw)
	if err != nil {
		return nil, fmt.Errorf("bad wallet code cell: %v", err)
	}

	data := cell.BeginCell().
		MustStoreUInt(0, 32).                 // seqno
		MustStoreUInt(DefaultSubwallet, 32).  // subwallet id
		MustStoreSlice(pub, 256).             // public key
		MustStoreBoolBit(false).              // no plugins
		EndCell()

	stateInit := cell.BeginCell().
		MustStoreUInt(0b00110, 5). // no split depth, not special, code + data, no libs
		MustStoreRef(code).
		MustStoreRef(data).
		EndCell()

	return stateInit, nil
}
