package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

func TestSplitWineListExtractsBlock(t *testing.T) {
	reply := "Two bottles worth hunting down.\n\n```wines\n" +
		`[{"name":"Cune Reserva","region":"Rioja","year":"2018","price":"$25","note":"classic tempranillo"},` +
		`{"name":"Domaine Faiveley","region":"Burgundy","year":"2020","price":"$40","note":"silky pinot"}]` +
		"\n```\nEnjoy!"

	text, wines := SplitWineList(reply)

	assert.Equal(t, "Two bottles worth hunting down.\n\n\nEnjoy!", text)
	require.Len(t, wines, 2)
	assert.Equal(t, model.Wine{Name: "Cune Reserva", Region: "Rioja", Year: "2018", Price: "$25", Note: "classic tempranillo"}, wines[0])
	assert.Equal(t, "Domaine Faiveley", wines[1].Name)
}

func TestSplitWineListNoBlock(t *testing.T) {
	text, wines := SplitWineList("  Just drink what you like.  ")

	assert.Equal(t, "Just drink what you like.", text)
	assert.Nil(t, wines)
}

func TestSplitWineListMalformedJSONLeavesReplyIntact(t *testing.T) {
	reply := "Here you go.\n```wines\nnot json at all\n```"

	text, wines := SplitWineList(reply)

	assert.Equal(t, reply, text)
	assert.Nil(t, wines)
}

func TestSplitWineListUnterminatedBlock(t *testing.T) {
	reply := "Here you go.\n```wines\n[{\"name\":\"x\"}]"

	text, wines := SplitWineList(reply)

	assert.Equal(t, reply, text)
	assert.Nil(t, wines)
}

func TestSplitWineListEmptyArray(t *testing.T) {
	text, wines := SplitWineList("Nothing specific.\n```wines\n[]\n```")

	assert.Equal(t, "Nothing specific.", text)
	assert.Nil(t, wines)
}
