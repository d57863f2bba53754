package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/source"
	"github.com/rodekruis/qfa/internal/source/kobo"
	"github.com/rodekruis/qfa/internal/writeback"
)

type classifyResult struct {
	Outcome   model.Outcome     `json:"outcome"`
	WriteBack *writeback.Status `json:"write_back,omitempty"`
}

// NewClassifyCmd classifies one text or one origin payload.
func NewClassifyCmd() *cobra.Command {
	var (
		of          originFlags
		text        string
		payloadPath string
		writeBack   bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one feedback text against the origin's taxonomy",
		Long: `Classify one feedback text. The text is given with --text, or read from a
Kobo submission or EspoCRM record (--payload, "-" for stdin) using --text-field.
With --write-back the outcome is handed to the origin's write-back adapter.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := of.origin()
			if err != nil {
				return err
			}
			if err := requireLevels(origin); err != nil {
				return err
			}

			var payload map[string]any
			if payloadPath != "" {
				payload, err = readPayload(cmd.InOrStdin(), payloadPath)
				if err != nil {
					return err
				}
				if text == "" {
					text, err = payloadText(origin, payload)
					if err != nil {
						return err
					}
				}
			}
			if text == "" {
				return errors.New("nothing to classify: use --text or --payload")
			}

			a, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.engine.Classify(cmd.Context(), origin, text)
			if err != nil {
				return err
			}
			res := classifyResult{Outcome: out}

			if writeBack {
				sc := a.cfg.Sources.For(origin.System)
				w, err := writeback.For(origin.System, source.Config{Endpoint: sc.Endpoint, Timeout: sc.Timeout})
				if err != nil {
					return err
				}
				status, err := w.Write(cmd.Context(), origin, out, payload)
				if err != nil {
					return err
				}
				res.WriteBack = &status
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	of.register(cmd)
	cmd.Flags().StringVar(&text, "text", "", "Feedback text")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "JSON payload file holding the feedback (\"-\" for stdin)")
	cmd.Flags().BoolVar(&writeBack, "write-back", false, "Hand the outcome to the origin's write-back adapter")
	return cmd
}

func readPayload(stdin io.Reader, path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}

// payloadText extracts the feedback text from an origin-native payload.
func payloadText(origin model.Origin, payload map[string]any) (string, error) {
	if origin.TextField == "" {
		return "", errors.New("--text-field is required to read text from a payload")
	}
	if origin.System == model.SystemKobo {
		return kobo.SubmissionText(payload, origin.TextField)
	}
	s, ok := payload[origin.TextField].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("payload has no text in field %q", origin.TextField)
	}
	return s, nil
}
