package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/providers"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

func main() {
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		log.Fatal("API_KEY environment variable is required")
	}
	family, ok := llm.ParseFamily(os.Getenv("PROVIDER"))
	if !ok {
		family = llm.FamilyAnthropic
	}
	modelName := os.Getenv("MODEL")
	if modelName == "" {
		modelName = "claude-sonnet-4-5"
	}

	adapter, err := providers.New(family, apiKey, providers.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// 推理内容和正文分开输出
	inThinking := false
	client := llm.New(adapter, resolve.Default().For(family),
		llm.WithDefaultControls(llm.WithMaxTokens(8192)),
		llm.WithEventHandler(func(_ context.Context, ev llm.StreamEvent) error {
			switch ev.Kind {
			case llm.EventThinkingDelta:
				if !inThinking {
					fmt.Println("=== 推理过程 ===")
					inThinking = true
				}
				fmt.Print(ev.Thinking.Text)
			case llm.EventContentDelta:
				if inThinking {
					fmt.Println("\n=== 回答 ===")
					inThinking = false
				}
				fmt.Print(ev.Content.Text)
			}
			return nil
		}),
	)

	model := capability.Lookup(family, modelName).ModelInfo(modelName)
	col, err := client.Generate(context.Background(), model,
		[]llm.Message{llm.User("9.11 和 9.9 哪个大？")}, nil,
		llm.WithReasoningEffort(llm.EffortHigh),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	if u := col.Usage; u != nil && u.ThinkingTokens != nil {
		fmt.Printf("推理 token 数: %d\n", *u.ThinkingTokens)
	}
}
