package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out   *ssm.GetParameterOutput
	err   error
	input *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_ReturnsDecryptedValue(t *testing.T) {
	api := &fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("secret")}}}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), "  /bot/twitter-consumer-key ")
	require.NoError(t, err)
	require.Equal(t, "secret", v)
	require.Equal(t, "/bot/twitter-consumer-key", aws.ToString(api.input.Name))
	require.True(t, aws.ToBool(api.input.WithDecryption))
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), " ")
	require.Error(t, err)
}

func TestGetParameter_WrapsAPIError(t *testing.T) {
	sentinel := errors.New("access denied")
	c, err := New(&fakeSSM{err: sentinel})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/bot/x")
	require.ErrorIs(t, err, sentinel)
}

func TestGetParameter_MissingValue(t *testing.T) {
	c, err := New(&fakeSSM{out: &ssm.GetParameterOutput{}})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/bot/x")
	require.ErrorContains(t, err, "missing value")
}
