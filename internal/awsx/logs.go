package awsx

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// LogsAPI is the CloudWatch Logs surface behind the logs workflow.
type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

func ListLogGroups(ctx context.Context, api LogsAPI, prefix string) ([]string, error) {
	in := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix != "" {
		in.LogGroupNamePrefix = aws.String(prefix)
	}

	var groups []string
	for {
		out, err := api.DescribeLogGroups(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", err)
		}
		for _, g := range out.LogGroups {
			groups = append(groups, aws.ToString(g.LogGroupName))
		}
		if out.NextToken == nil {
			break
		}
		in.NextToken = out.NextToken
	}

	sort.Strings(groups)
	return groups, nil
}

// TailOptions controls a log tail run.
type TailOptions struct {
	Group        string
	Filter       string        // CloudWatch filter pattern, empty for everything
	Since        time.Duration // how far back to start
	Follow       bool
	PollInterval time.Duration
}

// TailLogs writes matching events to w, oldest first.  With Follow set it
// keeps polling for new events until ctx is cancelled; events already printed
// are suppressed by id when the poll windows overlap.
func TailLogs(ctx context.Context, api LogsAPI, opts TailOptions, w io.Writer) error {
	if opts.Since <= 0 {
		opts.Since = 10 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}

	startTime := time.Now().Add(-opts.Since).UnixMilli()
	printed := make(map[string]int64)

	for {
		last, err := drainEvents(ctx, api, opts, startTime, printed, w)
		if err != nil {
			return err
		}
		if !opts.Follow {
			return nil
		}
		if last > startTime {
			// next window starts at the newest seen timestamp; only events at
			// that instant can reappear, so older dedup entries are dropped
			startTime = last
			pruneBefore(printed, startTime)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}
}

// pruneBefore drops dedup entries that fell out of the poll window, keeping
// the printed set bounded on long follows.
func pruneBefore(printed map[string]int64, cutoff int64) {
	for id, ts := range printed {
		if ts < cutoff {
			delete(printed, id)
		}
	}
}

func drainEvents(ctx context.Context, api LogsAPI, opts TailOptions, startTime int64, printed map[string]int64, w io.Writer) (int64, error) {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(opts.Group),
		StartTime:    aws.Int64(startTime),
	}
	if opts.Filter != "" {
		in.FilterPattern = aws.String(opts.Filter)
	}

	var last int64
	for {
		out, err := api.FilterLogEvents(ctx, in)
		if err != nil {
			return last, fmt.Errorf("filter log events: %w", err)
		}

		for _, ev := range out.Events {
			id := aws.ToString(ev.EventId)
			if _, ok := printed[id]; ok {
				continue
			}
			printed[id] = aws.ToInt64(ev.Timestamp)

			ts := time.UnixMilli(aws.ToInt64(ev.Timestamp))
			if ts.UnixMilli() > last {
				last = ts.UnixMilli()
			}
			fmt.Fprintf(w, "%s %s %s\n",
				ts.UTC().Format(time.RFC3339), aws.ToString(ev.LogStreamName), aws.ToString(ev.Message))
		}

		if out.NextToken == nil {
			return last, nil
		}
		in.NextToken = out.NextToken
	}
}
