package wallet

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMnemonic passes both the wordlist check and the seed version check.
const testMnemonic = "abandon ability able about above absent absorb yard absurd abuse access accident account accuse achieve acid acoustic acquire across act action actor actress actual"

func TestDeriveIsDeterministic(t *testing.T) {
	first, err := Derive(testMnemonic)
	require.NoError(t, err)

	second, err := Derive(testMnemonic)
	require.NoError(t, err)

	assert.Equal(t, first.Address.String(), second.Address.String())
	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
	assert.Equal(t, first.StateInit.Hash(), second.StateInit.Hash())
}

func TestDeriveKeyPairMatches(t *testing.T) {
	sc, err := Derive(testMnemonic)
	require.NoError(t, err)

	msg := []byte("balance check")
	sig := ed25519.Sign(sc.PrivateKey, msg)
	assert.True(t, ed25519.Verify(sc.PublicKey, msg, sig))
}

func TestDeriveAddressMatchesStateInit(t *testing.T) {
	sc, err := Derive(testMnemonic)
	require.NoError(t, err)

	// a basechain address derived from the state init hash
	assert.EqualValues(t, 0, sc.Address.Workchain())
	assert.Equal(t, sc.StateInit.Hash(), sc.Address.Data())
}

func TestDeriveNormalizesWhitespaceAndCase(t *testing.T) {
	messy := "  " + strings.ToUpper(testMnemonic) + "\n"
	sc, err := Derive(messy)
	require.NoError(t, err)

	clean, err := Derive(testMnemonic)
	require.NoError(t, err)

	assert.Equal(t, clean.Address.String(), sc.Address.String())
}

func TestDeriveRejectsWrongWordCount(t *testing.T) {
	_, err := Derive("abandon ability able")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "24 words")
}

func TestDeriveRejectsUnknownWord(t *testing.T) {
	words := strings.Fields(testMnemonic)
	words[5] = "blorптel"
	_, err := Derive(strings.Join(words, " "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown word")
}

func TestDeriveRejectsBadSeedVersion(t *testing.T) {
	// valid words, but the derived entropy fails the version check
	phrase := strings.TrimSpace(strings.Repeat("abandon ", 24))
	_, err := Derive(phrase)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed version")
}
