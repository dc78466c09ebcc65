// Command formstate-cli fills a form interactively: it loads a definition
// from a file or a remote endpoint, prompts for visible fields (re-deriving
// visibility after every answer), reports validation errors and safety
// classifications, and optionally submits the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/rs/zerolog"

	internalclient "github.com/goliatone/go-formstate/internal/client"
	"github.com/goliatone/go-formstate/internal/schemaload"
	"github.com/goliatone/go-formstate/pkg/client"
	"github.com/goliatone/go-formstate/pkg/safety"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/submit"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

func main() {
	definitionPath := flag.String("definition", "", "form definition file or URL (JSON or YAML)")
	baseURL := flag.String("base-url", "", "remote API base URL")
	formID := flag.String("form", "", "form id to fetch when -base-url is set")
	doSubmit := flag.Bool("submit", false, "submit the answers when valid (requires -base-url)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx := context.Background()

	var remote client.Client
	if *baseURL != "" {
		var err error
		remote, err = internalclient.New(*baseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid base url")
		}
	}

	def, err := loadDefinition(ctx, remote, *definitionPath, *formID)
	if err != nil {
		logger.Fatal().Err(err).Msg("load definition")
	}

	values := def.Defaults()
	registry := safety.DefaultRegistry()
	asked := make(map[string]struct{})

	// Answering one field can reveal others, so keep sweeping until a full
	// pass prompts nothing new.
	for {
		visible := visibility.Compute(def, values)
		prompted := false
		for _, field := range def.Fields {
			if _, ok := visible[field.ID]; !ok {
				continue
			}
			if _, done := asked[field.ID]; done {
				continue
			}
			asked[field.ID] = struct{}{}
			prompted = true

			value, err := promptField(field)
			if err != nil {
				logger.Fatal().Err(err).Str("field", field.ID).Msg("prompt failed")
			}
			if value != nil {
				values[field.ID] = value
			}

			if status, ok := registry.Classify(field.ID, value); ok {
				fmt.Printf("  [%s] %s\n", status.Severity, status.Message)
			}
		}
		if !prompted {
			break
		}
	}

	visible := visibility.Compute(def, values)
	errs, ok := validation.ValidateForm(def, values, visible)
	if !ok {
		fmt.Println("\nvalidation failed:")
		for fieldID, messages := range errs {
			for _, message := range messages {
				fmt.Printf("  %s: %s\n", fieldID, message)
			}
		}
		os.Exit(1)
	}

	fmt.Println("\nall fields valid")

	if *doSubmit {
		if remote == nil {
			logger.Fatal().Msg("-submit requires -base-url")
		}
		result := submit.New(remote).Submit(ctx, def, values, visible, nil)
		switch result.Status {
		case submit.StatusAccepted:
			fmt.Println("submission accepted")
		case submit.StatusRejected:
			fmt.Println("submission rejected:")
			for fieldID, messages := range result.Errors {
				fmt.Printf("  %s: %s\n", fieldID, strings.Join(messages, "; "))
			}
			os.Exit(1)
		default:
			logger.Fatal().Err(result.Err).Msg("submission failed")
		}
	}
}

func loadDefinition(ctx context.Context, remote client.Client, location, formID string) (schema.FormDefinition, error) {
	switch {
	case location != "":
		loader := schemaload.New(schema.LoaderOptions{AllowHTTPFallback: true})
		src := schema.SourceFromFile(location)
		if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
			src = schema.SourceFromURL(location)
		}
		return loader.Load(ctx, src)
	case remote != nil && formID != "":
		return remote.FetchDefinition(ctx, formID)
	default:
		return schema.FormDefinition{}, fmt.Errorf("either -definition or -base-url with -form is required")
	}
}

func promptField(field schema.FieldDefinition) (any, error) {
	label := field.Label
	if label == "" {
		label = field.ID
	}

	validator := survey.WithValidator(func(answer interface{}) error {
		value := normalizeAnswer(field, answer)
		if failures := validation.ValidateField(field, value); len(failures) > 0 {
			return fmt.Errorf("%s", strings.Join(failures, "; "))
		}
		return nil
	})

	if len(field.Options) > 0 {
		choices := make([]string, 0, len(field.Options))
		for _, option := range field.Options {
			choices = append(choices, fmt.Sprint(option.Value))
		}
		var answer string
		prompt := &survey.Select{Message: label + ":", Options: choices, Help: field.HelpText}
		if err := survey.AskOne(prompt, &answer, validator); err != nil {
			return nil, err
		}
		return answer, nil
	}

	if field.Type == schema.FieldTypeCheckbox {
		var answer bool
		prompt := &survey.Confirm{Message: label + "?", Help: field.HelpText}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil
	}

	var answer string
	prompt := &survey.Input{Message: label + ":", Help: field.HelpText, Default: fmt.Sprint(field.DefaultValue)}
	if field.DefaultValue == nil {
		prompt.Default = ""
	}
	if err := survey.AskOne(prompt, &answer, validator); err != nil {
		return nil, err
	}
	return normalizeAnswer(field, answer), nil
}

// normalizeAnswer converts the textual prompt answer into the value shape
// the engine expects for the field type.
func normalizeAnswer(field schema.FieldDefinition, answer interface{}) any {
	text, ok := answer.(string)
	if !ok {
		return answer
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if field.Type.Numeric() {
		if parsed, err := strconv.ParseFloat(text, 64); err == nil {
			return parsed
		}
	}
	return text
}
