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


// Package ai defines the embedding gateway boundary.
//
// The retrieval engine treats the embedding model as a black-box text to
// vector function; this package holds the interface, its configuration, and
// a rate-limiting decorator. Concrete implementations live in
// sub-packages:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test double, no network required
//
// All vectors returned through this boundary are unit-normalized and share
// one fixed dimension per deployment, so dot products are valid cosine
// similarities for both chunk and query text.
package ai
