package service

import (
	"context"
	"sync"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel records every Generate call and answers with reply or err.
type fakeChatModel struct {
	mu    sync.Mutex
	calls [][]*schema.Message
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func replying(content string) *fakeChatModel {
	return &fakeChatModel{reply: &schema.Message{Role: schema.Assistant, Content: content}}
}
