package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"prom2cw/internal/config"
)

type putMetricDataAPI interface {
	PutMetricData(
		ctx context.Context,
		params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink submits batches with the CloudWatch PutMetricData API.
// Params: CloudWatch client.
// Returns: metric sink implementation.
type CloudWatchSink struct {
	client putMetricDataAPI
}

// NewCloudWatchSink resolves AWS configuration and creates the CloudWatch client.
// Region and credentials come from the default AWS chain unless overridden in cfg.
// Params: ctx for config resolution; cfg cloudwatch section.
// Returns: CloudWatch sink or AWS config error.
func NewCloudWatchSink(ctx context.Context, cfg config.CloudWatchConfig) (*CloudWatchSink, error) {
	loadOptions := make([]func(*awsconfig.LoadOptions) error, 0, 2)
	if region := strings.TrimSpace(cfg.Region); region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(region))
	}
	if strings.TrimSpace(cfg.AccessKeyID) != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newCloudWatchSinkWithClient(client), nil
}

func newCloudWatchSinkWithClient(client putMetricDataAPI) *CloudWatchSink {
	return &CloudWatchSink{client: client}
}

// PutMetricData sends one batch as a single PutMetricData request.
// Params: ctx request context; namespace target namespace; data at most MaxBatchSize points.
// Returns: conversion or API error.
func (s *CloudWatchSink) PutMetricData(ctx context.Context, namespace string, data []Datum) error {
	if len(data) > MaxBatchSize {
		return fmt.Errorf("batch has %d points, limit is %d", len(data), MaxBatchSize)
	}

	input, err := buildPutMetricDataInput(namespace, data)
	if err != nil {
		return err
	}

	if _, err := s.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data to %q: %w", namespace, err)
	}
	return nil
}

// buildPutMetricDataInput converts data points into the CloudWatch request shape.
// Params: namespace target namespace; data batch payload.
// Returns: request or timestamp decode error.
func buildPutMetricDataInput(namespace string, data []Datum) (*cloudwatch.PutMetricDataInput, error) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: make([]types.MetricDatum, 0, len(data)),
	}

	for idx, datum := range data {
		ts, err := time.Parse(time.RFC3339Nano, datum.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("datum[%d] %s: parse timestamp: %w", idx, datum.Name, err)
		}

		dimensions := make([]types.Dimension, 0, len(datum.Dimensions))
		for _, dimension := range datum.Dimensions {
			dimensions = append(dimensions, types.Dimension{
				Name:  aws.String(dimension.Name),
				Value: aws.String(dimension.Value),
			})
		}

		input.MetricData = append(input.MetricData, types.MetricDatum{
			MetricName: aws.String(datum.Name),
			Dimensions: dimensions,
			Timestamp:  aws.Time(ts),
			Value:      aws.Float64(datum.Value),
		})
	}

	return input, nil
}
