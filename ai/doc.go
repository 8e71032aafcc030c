// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai defines the language-model collaborators of the retrieval
// engine: text embedding, query understanding, clause selection and answer
// synthesis.
//
// The core search packages depend only on these interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - QueryAnalyzer: Turns a question into intent, keywords and risk types
//   - AnswerSynthesizer: Writes a cited answer from retrieved clauses
//   - ArticleSelector: Picks the one clause that best answers a question
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Production constructors return INTERFACE types to prevent accidental
// coupling to concrete implementations:
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Mock constructors return CONCRETE types so tests can inject behavior and
// assert on calls:
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.WithEmbedTextFunc(...)
//	count := mockEmbed.CallCount()
//
// # Fallback Analysis
//
// When the analyzer fails the QA engine continues with FallbackAnalysis,
// which yields a general intent and up to five heuristic keywords:
//
//	a := ai.FallbackAnalysis("화재로 인한 손해는 보상되나요?")
//	// a.Intent == core.IntentGeneral
package ai
