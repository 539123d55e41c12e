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


package ingest

import (
	"context"

	"github.com/poiesic/relatio/core"
)

// Source supplies documents from an external system. The pipeline owns all
// processing; a source only normalizes its system's records into
// core.Document values newer than the given cursor.
type Source interface {
	// Name identifies the source. It keys the sync cursor, so it must be
	// stable across runs.
	Name() string

	// Fetch returns documents modified after the cursor's watermark, in
	// ModifiedAt order, along with the cursor to persist once the batch
	// has been ingested. A nil cursor means a full sync. An empty result
	// with a nil next cursor means the source is drained.
	Fetch(ctx context.Context, cursor *core.SyncCursor) ([]core.Document, *core.SyncCursor, error)
}
