package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/cobra"
)

var invokeFlags struct {
	region    string
	qualifier string
	logs      bool
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <function> <event-file>",
	Short: "Invoke a deployed function with a gateway event",
	Long: `Send a gateway event (JSON or YAML, "-" for stdin) to a deployed function and print
the decoded response. AWS credentials and region come from the default credential chain.`,
	Example: fmt.Sprintf(`  - %s invoke my-api event.json
  - %s invoke my-api:live event.yaml --logs`, rootCmd.Use, rootCmd.Use),
	Args: cobra.ExactArgs(2),
	RunE: invokeRun,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeFlags.region, "region", "", "AWS region (defaults to the AWS configuration)")
	invokeCmd.Flags().StringVar(&invokeFlags.qualifier, "qualifier", "", "Function version or alias")
	invokeCmd.Flags().BoolVar(&invokeFlags.logs, "logs", false, "Print the tail of the execution log")
	rootCmd.AddCommand(invokeCmd)
}

func invokeRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	payload, err := loadEventFile(args[1], cmd.InOrStdin())
	if err != nil {
		return err
	}

	var awsOpts []func(*awsconfig.LoadOptions) error
	if invokeFlags.region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(invokeFlags.region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	service := NewInvokeService(lambda.NewFromConfig(awsCfg), NewOutputWrapper())
	return service.Invoke(ctx, InvokeRequest{
		Function:  args[0],
		Qualifier: invokeFlags.qualifier,
		Payload:   payload,
		Logs:      invokeFlags.logs,
	})
}

// LambdaClient is the subset of the Lambda API used by InvokeService.
type LambdaClient interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// InvokeRequest describes one remote invocation.
type InvokeRequest struct {
	Function  string
	Qualifier string
	Payload   []byte
	Logs      bool
}

// InvokeService invokes deployed functions.
type InvokeService struct {
	client LambdaClient
	output OutputInterface
}

// NewInvokeService creates a new InvokeService with the provided dependencies.
func NewInvokeService(client LambdaClient, outputter OutputInterface) *InvokeService {
	return &InvokeService{
		client: client,
		output: outputter,
	}
}

// Invoke sends the event synchronously and prints the gateway response.
func (s *InvokeService) Invoke(ctx context.Context, req InvokeRequest) error {
	kind, err := api.DetectKind(req.Payload)
	if err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	input := &lambda.InvokeInput{
		FunctionName:   aws.String(req.Function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        req.Payload,
	}
	if req.Qualifier != "" {
		input.Qualifier = aws.String(req.Qualifier)
	}
	if req.Logs {
		input.LogType = types.LogTypeTail
	}

	s.output.Info("Invoking %s with a %s event", req.Function, kind)
	start := time.Now()
	out, err := s.client.Invoke(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("lambda invoke failed: %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("lambda invoke failed: %w", err)
	}

	if out.ExecutedVersion != nil {
		s.output.KeyValue("Version", *out.ExecutedVersion)
	}
	if req.Logs && out.LogResult != nil {
		s.printLogs(*out.LogResult)
	}

	if out.FunctionError != nil {
		return fmt.Errorf("function error (%s): %s", *out.FunctionError, strings.TrimSpace(string(out.Payload)))
	}

	resp, err := api.DecodeResponseEvent(out.Payload)
	if err != nil {
		return err
	}
	s.output.Response(resp, elapsed)
	return nil
}

func (s *InvokeService) printLogs(encoded string) {
	logs, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.output.Warning("failed to decode execution log: %v", err)
		return
	}
	s.output.Blank()
	s.output.Println(strings.TrimRight(string(logs), "\n"))
}
