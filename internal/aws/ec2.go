package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeInstances(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeInstances")
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				records = append(records, p.convertInstance(instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertInstance(instance ec2types.Instance) types.ResourceRecord {
	name, environment := extractTags(instance.Tags)

	securityGroup := ""
	if len(instance.SecurityGroups) > 0 {
		securityGroup = aws.ToString(instance.SecurityGroups[0].GroupId)
	}

	iamProfile := ""
	if instance.IamInstanceProfile != nil {
		iamProfile = instanceProfileName(aws.ToString(instance.IamInstanceProfile.Arn))
	}

	state := ""
	if instance.State != nil {
		state = string(instance.State.Name)
	}

	return types.ResourceRecord{
		"Name":                 name,
		"Environment":          environment,
		"Instance Id":          aws.ToString(instance.InstanceId),
		"Instance Type":        string(instance.InstanceType),
		"Vpc Id":               aws.ToString(instance.VpcId),
		"Subnet Id":            aws.ToString(instance.SubnetId),
		"Security Group":       securityGroup,
		"IAM Instance profile": iamProfile,
		"Launch Time":          formatTime(instance.LaunchTime),
		"Private IP":           aws.ToString(instance.PrivateIpAddress),
		"State":                state,
		"OS Family":            aws.ToString(instance.PlatformDetails),
	}
}

func (p *Provider) describeVPCs(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeVpcs")
		}

		for _, vpc := range output.Vpcs {
			name, environment := extractTags(vpc.Tags)
			records = append(records, types.ResourceRecord{
				"VPC Name":       name,
				"Environment":    environment,
				"VPC Id":         aws.ToString(vpc.VpcId),
				"VPC Cidr Block": aws.ToString(vpc.CidrBlock),
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "VPC Name"), nil
}

func (p *Provider) describeSubnets(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeSubnets")
		}

		for _, subnet := range output.Subnets {
			name, environment := extractTags(subnet.Tags)
			records = append(records, types.ResourceRecord{
				"Subnet Name":       name,
				"Environment":       environment,
				"Subnet Id":         aws.ToString(subnet.SubnetId),
				"Subnet Cidr Block": aws.ToString(subnet.CidrBlock),
				"VpcId":             aws.ToString(subnet.VpcId),
				"AvailabilityZone":  aws.ToString(subnet.AvailabilityZone),
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Subnet Name"), nil
}

func (p *Provider) describeSecurityGroups(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeSecurityGroups")
		}

		for _, group := range output.SecurityGroups {
			records = append(records, types.ResourceRecord{
				"Name":        aws.ToString(group.GroupName),
				"Id":          aws.ToString(group.GroupId),
				"VPC":         aws.ToString(group.VpcId),
				"Description": aws.ToString(group.Description),
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeSecurityGroupRules(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeSecurityGroupRules(ctx, &ec2.DescribeSecurityGroupRulesInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeSecurityGroupRules")
		}

		for _, rule := range output.SecurityGroupRules {
			var fromPort any = "all"
			if rule.FromPort != nil {
				fromPort = aws.ToInt32(rule.FromPort)
			}
			var toPort any = "all"
			if rule.ToPort != nil {
				toPort = aws.ToInt32(rule.ToPort)
			}
			cidr := "unknown"
			if rule.CidrIpv4 != nil {
				cidr = aws.ToString(rule.CidrIpv4)
			}

			records = append(records, types.ResourceRecord{
				"Rule Id":     aws.ToString(rule.SecurityGroupRuleId),
				"Group Id":    aws.ToString(rule.GroupId),
				"Protocol":    aws.ToString(rule.IpProtocol),
				"From Port":   fromPort,
				"To Port":     toPort,
				"Cidr":        cidr,
				"Description": aws.ToString(rule.Description),
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Rule Id"), nil
}

func (p *Provider) describeVolumes(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeVolumes")
		}

		for _, volume := range output.Volumes {
			records = append(records, p.convertVolume(volume))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertVolume(volume ec2types.Volume) types.ResourceRecord {
	name, environment := extractTags(volume.Tags)

	attachments := make([]string, 0, len(volume.Attachments))
	for _, attachment := range volume.Attachments {
		attachments = append(attachments, aws.ToString(attachment.InstanceId))
	}

	return types.ResourceRecord{
		"Name":              name,
		"Environment":       environment,
		"Volume Id":         aws.ToString(volume.VolumeId),
		"Size":              gigabytes(aws.ToInt32(volume.Size)),
		"Type":              string(volume.VolumeType),
		"State":             string(volume.State),
		"Availability Zone": aws.ToString(volume.AvailabilityZone),
		"Encrypted":         aws.ToBool(volume.Encrypted),
		"Attachments":       attachments,
	}
}

func (p *Provider) describeAMIs(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeImages(ctx, &ec2.DescribeImagesInput{
			Owners:    []string{"self"},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeImages")
		}

		for _, image := range output.Images {
			records = append(records, p.convertImage(image))
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertImage(image ec2types.Image) types.ResourceRecord {
	name, environment := extractTags(image.Tags)

	// Platform is only reported for Windows images.
	platform := string(image.Platform)
	if platform == "" {
		platform = "Linux/UNIX"
	}

	return types.ResourceRecord{
		"Name":                name,
		"Environment":         environment,
		"AMI Id":              aws.ToString(image.ImageId),
		"State":               string(image.State),
		"Architecture":        string(image.Architecture),
		"Platform":            platform,
		"Creation Date":       aws.ToString(image.CreationDate),
		"Description":         aws.ToString(image.Description),
		"Root Device Type":    string(image.RootDeviceType),
		"Virtualization Type": string(image.VirtualizationType),
	}
}

func (p *Provider) describeSnapshots(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.EC2.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
			OwnerIds:  []string{"self"},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, p.apiError(ctx, err, "ec2", "DescribeSnapshots")
		}

		for _, snapshot := range output.Snapshots {
			name, environment := extractTags(snapshot.Tags)
			records = append(records, types.ResourceRecord{
				"Name":        name,
				"Environment": environment,
				"Snapshot Id": aws.ToString(snapshot.SnapshotId),
				"Volume Id":   aws.ToString(snapshot.VolumeId),
				"Size":        gigabytes(aws.ToInt32(snapshot.VolumeSize)),
				"State":       string(snapshot.State),
				"Progress":    aws.ToString(snapshot.Progress),
				"Start Time":  formatTime(snapshot.StartTime),
				"Description": aws.ToString(snapshot.Description),
				"Encrypted":   aws.ToBool(snapshot.Encrypted),
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}
