package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/twinfer/spring-codec/pkg/convert"
)

// Processor operations
const (
	opBinaryToText = "binary_to_text"
	opBinaryToJSON = "binary_to_json"
	opBinaryToCSV  = "binary_to_csv"
	opToBinary     = "to_binary"
)

// SpringProcessor converts spring test programs carried in messages
type SpringProcessor struct {
	operation string
	converter *convert.Converter
	logger    *service.Logger
	mDecoded  *service.MetricCounter
	mEncoded  *service.MetricCounter
	mErrors   *service.MetricCounter
}

func init() {
	err := service.RegisterProcessor(
		"spring_test",
		springProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newSpringProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

func springProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Converts spring tester programs between the machine binary and text or JSON.").
		Description("Decoding reads a length-prefixed token stream and renders the editable text form, JSON or a CSV of the test sequence. " +
			"Encoding accepts either form (JSON is detected by a leading brace) and writes the binary. " +
			"Converted messages carry spring_rows and spring_unknown_codes metadata.").
		Field(service.NewStringEnumField("operation", opBinaryToText, opBinaryToJSON, opBinaryToCSV, opToBinary).
			Description("Conversion to apply.").
			Default(opBinaryToText)).
		Field(service.NewStringField("layouts_path").
			Description("Command layout table YAML file. Leave empty for the built-in table.").
			Example("./layouts.yaml").
			Default("")).
		Version("0.1.0")
}

func newSpringProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*SpringProcessor, error) {
	operation, err := conf.FieldString("operation")
	if err != nil {
		return nil, err
	}
	switch operation {
	case opBinaryToText, opBinaryToJSON, opBinaryToCSV, opToBinary:
	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
	layoutsPath, err := conf.FieldString("layouts_path")
	if err != nil {
		return nil, err
	}

	var opts []convert.Option
	if layoutsPath != "" {
		if err := convert.ValidateLayouts(layoutsPath); err != nil {
			return nil, err
		}
		opts = append(opts, convert.WithLayoutFile(layoutsPath))
	}

	metrics := mgr.Metrics()
	return &SpringProcessor{
		operation: operation,
		converter: convert.New(opts...),
		logger:    mgr.Logger(),
		mDecoded:  metrics.NewCounter("spring_decoded_messages"),
		mEncoded:  metrics.NewCounter("spring_encoded_messages"),
		mErrors:   metrics.NewCounter("spring_processing_errors"),
	}, nil
}

// Process converts one message. Failures are attached to the message.
func (p *SpringProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	data, err := msg.AsBytes()
	if err != nil {
		return p.fail(msg, fmt.Errorf("failed to get message bytes: %w", err))
	}
	if len(data) == 0 {
		return p.fail(msg, fmt.Errorf("empty message"))
	}

	var out []byte
	var result *convert.Result
	switch p.operation {
	case opBinaryToText:
		out, result, err = p.converter.BinaryToText(ctx, data)
	case opBinaryToJSON:
		out, result, err = p.converter.BinaryToJSON(ctx, data)
	case opBinaryToCSV:
		out, result, err = p.converter.BinaryToCSV(ctx, data)
	case opToBinary:
		if isJSON(data) {
			out, result, err = p.converter.JSONToBinary(ctx, data)
		} else {
			out, result, err = p.converter.TextToBinary(ctx, data)
		}
	default:
		err = fmt.Errorf("unknown operation %q", p.operation)
	}
	if err != nil {
		return p.fail(msg, fmt.Errorf("%s of %d bytes: %w", p.operation, len(data), err))
	}

	if p.operation == opToBinary {
		p.mEncoded.Incr(1)
	} else {
		p.mDecoded.Incr(1)
	}
	p.logger.Debugf("Converted %d bytes to %d bytes (%s)", len(data), len(out), p.operation)

	newMsg := service.NewMessage(out)
	_ = msg.MetaWalk(func(key, value string) error {
		newMsg.MetaSet(key, value)
		return nil
	})
	newMsg.MetaSet("spring_rows", strconv.Itoa(result.Diagnostics.Rows))
	newMsg.MetaSet("spring_unknown_codes", strconv.Itoa(len(result.Diagnostics.UnknownCodes)))
	return service.MessageBatch{newMsg}, nil
}

func (p *SpringProcessor) fail(msg *service.Message, err error) (service.MessageBatch, error) {
	p.logger.Errorf("%v", err)
	p.mErrors.Incr(1)
	msg.SetError(err)
	return service.MessageBatch{msg}, nil
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Close drops cached layout tables
func (p *SpringProcessor) Close(ctx context.Context) error {
	p.converter.ClearCache()
	return nil
}
