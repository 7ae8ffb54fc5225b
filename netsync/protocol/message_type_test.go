package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageType(t *testing.T) {
	require := require.New(t)
	require.Equal("Transform", TypeTransform.String())
	require.Equal("Unknown", MessageType(9).String())
	require.True(TypeData.Valid())
	require.False(MessageType(4).Valid())
}
