package transaction

import (
	"testing"

	"github.com/stargazerlabs/tonstars/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
)

const testMnemonic = "abandon ability able about above absent absorb yard absurd abuse access accident account accuse achieve acid acoustic acquire across act action actor actress actual"

func testContext(t *testing.T) *wallet.SigningContext {
	t.Helper()
	sc, err := wallet.Derive(testMnemonic)
	require.NoError(t, err)
	return sc
}

func testDest() *address.Address {
	data := make([]byte, 32)
	data[31] = 7
	return address.NewAddress(0, 0, data)
}

func TestBuildEnvelopeSignatureVerifies(t *testing.T) {
	sc := testContext(t)

	env, err := BuildEnvelope(sc, []OutboundMessage{{
		Dest:   testDest(),
		Amount: 441800000,
	}}, 12, 1900000000)
	require.NoError(t, err)

	ok, err := Verify(sc, env)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildEnvelopeAttachesDeploymentOnlyAtSeqnoZero(t *testing.T) {
	sc := testContext(t)
	msgs := []OutboundMessage{{Dest: testDest(), Amount: 1000000}}

	fresh, err := BuildEnvelope(sc, msgs, 0, 1900000000)
	require.NoError(t, err)

	deployed, err := BuildEnvelope(sc, msgs, 3, 1900000000)
	require.NoError(t, err)

	assert.True(t, hasStateInit(t, fresh), "seqno 0 must carry the deployment payload")
	assert.False(t, hasStateInit(t, deployed), "a deployed wallet must not redeploy")
}

func hasStateInit(t *testing.T, env *Envelope) bool {
	t.Helper()
	slice := env.Cell().BeginParse()

	tag, err := slice.LoadUInt(2)
	require.NoError(t, err)
	require.EqualValues(t, 0b10, tag)

	_, err = slice.LoadUInt(2) // src addr_none
	require.NoError(t, err)
	_, err = slice.LoadAddr()
	require.NoError(t, err)
	_, err = slice.LoadCoins()
	require.NoError(t, err)

	hasInit, err := slice.LoadBoolBit()
	require.NoError(t, err)
	return hasInit
}

func TestBuildEnvelopeRejectsMalformedInput(t *testing.T) {
	sc := testContext(t)
	good := OutboundMessage{Dest: testDest(), Amount: 1}

	_, err := BuildEnvelope(sc, nil, 1, 1900000000)
	assert.Error(t, err, "no messages")

	_, err = BuildEnvelope(sc, []OutboundMessage{good, good, good, good, good}, 1, 1900000000)
	assert.Error(t, err, "too many messages")

	_, err = BuildEnvelope(sc, []OutboundMessage{{Amount: 1}}, 1, 1900000000)
	assert.Error(t, err, "missing destination")

	_, err = BuildEnvelope(sc, []OutboundMessage{{Dest: testDest()}}, 1, 1900000000)
	assert.Error(t, err, "zero amount")

	_, err = BuildEnvelope(nil, []OutboundMessage{good}, 1, 1900000000)
	assert.Error(t, err, "missing signing context")
}

func TestBuildEnvelopeDiffersPerSeqno(t *testing.T) {
	sc := testContext(t)
	msgs := []OutboundMessage{{Dest: testDest(), Amount: 5000}}

	a, err := BuildEnvelope(sc, msgs, 1, 1900000000)
	require.NoError(t, err)
	b, err := BuildEnvelope(sc, msgs, 2, 1900000000)
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestDecodePayload(t *testing.T) {
	c, err := DecodePayload("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = DecodePayload("not base64!!")
	assert.Error(t, err)

	_, err = DecodePayload("aGVsbG8=") // valid base64, not a cell
	assert.Error(t, err)
}

func TestLooksLikeTxRef(t *testing.T) {
	assert.True(t, LooksLikeTxRef("aDf9b3KQm1VsfLZDxT0T5Wi3l0T9kH0M0tL3v9XhRGI="))
	assert.True(t, LooksLikeTxRef("0f31b1efa34c4c5a9d7b6d3f1b2c3d4e5f60718293a4b5c6d7e8f90112233445"))

	assert.False(t, LooksLikeTxRef(""))
	assert.False(t, LooksLikeTxRef("short"))
	assert.False(t, LooksLikeTxRef("Rate limit exceeded, try again later plz"))
	assert.False(t, LooksLikeTxRef("internal error: something went wrong here"))
	assert.False(t, LooksLikeTxRef("this string has spaces and is quite long yes"))
}
