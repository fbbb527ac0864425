package targets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
)

// AWSCredential is one account entry in the credentials JSON list. Field
// names match the credential file format consumed by earlier deployments.
type AWSCredential struct {
	AccessKeyID     string   `json:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string   `json:"AWS_SECRET_ACCESS_KEY"`
	ProfileName     string   `json:"AWS_PROFILE_NAME"`
	Regions         []string `json:"AWS_REGIONS"`
}

// ec2API is the subset of the EC2 client used for public IP discovery.
type ec2API interface {
	DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// AWSResolver collects elastic IPs and instance public IPs across every
// configured account and region.
type AWSResolver struct {
	credentials []AWSCredential
	logger      *logging.Logger

	// newClient is replaceable for tests.
	newClient func(ctx context.Context, cred AWSCredential, region string) (ec2API, error)
}

// NewAWSResolver creates a resolver from a JSON credentials list.
func NewAWSResolver(credentialsJSON string) (*AWSResolver, error) {
	var creds []AWSCredential
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, errors.WrapResolveError(errors.CodeConfiguration,
			"invalid AWS credentials JSON", "aws", err)
	}
	return &AWSResolver{
		credentials: creds,
		logger:      logging.Default().WithComponent("targets.aws"),
		newClient:   newEC2Client,
	}, nil
}

func newEC2Client(ctx context.Context, cred AWSCredential, region string) (ec2API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

// Resolve lists elastic IPs and instance public IPs for every account and
// region. Failures in one region are logged and skipped so one broken
// account does not empty the whole target set.
func (r *AWSResolver) Resolve(ctx context.Context) ([]string, error) {
	var addresses []string

	for _, cred := range r.credentials {
		for _, region := range cred.Regions {
			client, err := r.newClient(ctx, cred, region)
			if err != nil {
				r.logger.Error("Failed to create EC2 client",
					"profile", cred.ProfileName, "region", region, "error", err)
				continue
			}

			elastic, err := r.elasticIPs(ctx, client)
			if err != nil {
				r.logger.Error("DescribeAddresses failed",
					"profile", cred.ProfileName, "region", region, "error", err)
			} else {
				addresses = append(addresses, elastic...)
			}

			instance, err := r.instancePublicIPs(ctx, client)
			if err != nil {
				r.logger.Error("DescribeInstances failed",
					"profile", cred.ProfileName, "region", region, "error", err)
			} else {
				addresses = append(addresses, instance...)
			}
		}
	}

	return Normalize(addresses), nil
}

// elasticIPs lists allocated elastic IP addresses.
func (r *AWSResolver) elasticIPs(ctx context.Context, client ec2API) ([]string, error) {
	output, err := client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, address := range output.Addresses {
		if ip := aws.ToString(address.PublicIp); ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

// instancePublicIPs pages through all reservations collecting instance
// public IPs.
func (r *AWSResolver) instancePublicIPs(ctx context.Context, client ec2API) ([]string, error) {
	var ips []string

	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if ip := aws.ToString(instance.PublicIpAddress); ip != "" {
					ips = append(ips, ip)
				}
			}
		}
	}
	return ips, nil
}
