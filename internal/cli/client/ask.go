package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// AnswerRequest is the body of POST /answer.
type AnswerRequest struct {
	Question string `json:"question"`
}

// AnswerResponse is the body returned by POST /answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// Ask sends question to the server and returns the generated answer.
func (c *APIClient) Ask(ctx context.Context, question string) (string, error) {
	var resp AnswerResponse
	if err := c.Post(ctx, "/answer", AnswerRequest{Question: question}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// AskCmd creates the ask command. Without arguments it reads questions from
// stdin until "exit" or EOF.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed resumes",
		Long: `Sends a question to the resumeqa server and prints the answer.

With no argument, starts an interactive session. Type 'exit' to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			if len(args) == 1 {
				return askOnce(cmd.Context(), api, args[0], outputJSON, cmd.OutOrStdout())
			}
			return askLoop(cmd.Context(), api, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	return cmd
}

func askOnce(ctx context.Context, api *APIClient, question string, outputJSON bool, out io.Writer) error {
	answer, err := api.Ask(ctx, question)
	if err != nil {
		return describeAskError(err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(AnswerResponse{Answer: answer}, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintln(out, answer)
	return nil
}

func askLoop(ctx context.Context, api *APIClient, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Recruiter assistant ready. Type 'exit' to stop.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nRecruiter: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(question, "exit") {
			return nil
		}
		if question == "" {
			fmt.Fprintln(out, "please enter a question")
			continue
		}

		answer, err := api.Ask(ctx, question)
		if err != nil {
			fmt.Fprintf(out, "\nError: %v\n", describeAskError(err))
			continue
		}
		fmt.Fprintf(out, "\nAnswer:\n%s\n", answer)
	}

	return scanner.Err()
}

func describeAskError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("provider rate limit reached, try again later: %w", err)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("provider temporarily unavailable: %w", err)
	}
	return err
}
