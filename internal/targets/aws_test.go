package targets

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/errors"
)

// fakeEC2 implements ec2API with canned responses.
type fakeEC2 struct {
	addresses []ec2types.Address
	instances []ec2types.Instance
	err       error
}

func (f *fakeEC2) DescribeAddresses(_ context.Context, _ *ec2.DescribeAddressesInput,
	_ ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeAddressesOutput{Addresses: f.addresses}, nil
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput,
	_ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: f.instances}},
	}, nil
}

func newTestAWSResolver(t *testing.T, client ec2API) *AWSResolver {
	t.Helper()
	resolver, err := NewAWSResolver(`[{
		"AWS_ACCESS_KEY_ID": "AKIATEST",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_PROFILE_NAME": "test",
		"AWS_REGIONS": ["eu-west-1"]
	}]`)
	require.NoError(t, err)
	resolver.newClient = func(_ context.Context, _ AWSCredential, _ string) (ec2API, error) {
		return client, nil
	}
	return resolver
}

func TestAWSResolver(t *testing.T) {
	t.Run("collects elastic and instance IPs", func(t *testing.T) {
		client := &fakeEC2{
			addresses: []ec2types.Address{
				{PublicIp: aws.String("52.0.0.2")},
				{PublicIp: nil},
			},
			instances: []ec2types.Instance{
				{PublicIpAddress: aws.String("52.0.0.1")},
				{PublicIpAddress: aws.String("52.0.0.2")},
				{PublicIpAddress: nil},
			},
		}
		resolver := newTestAWSResolver(t, client)

		targets, err := resolver.Resolve(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"52.0.0.1", "52.0.0.2"}, targets)
	})

	t.Run("API failure yields empty set, not error", func(t *testing.T) {
		client := &fakeEC2{err: errors.NewScanError(errors.CodeUnknown, "denied")}
		resolver := newTestAWSResolver(t, client)

		targets, err := resolver.Resolve(context.Background())

		require.NoError(t, err)
		assert.Empty(t, targets)
	})

	t.Run("invalid credentials JSON rejected", func(t *testing.T) {
		_, err := NewAWSResolver("not json")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
	})
}
