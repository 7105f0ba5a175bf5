// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"os"
)

// AssertFunc panics on a violated invariant, the same "should not happen
// in released builds" tripwire idiom session.Session.assertOwner uses for
// its own goroutine-ownership check.
func AssertFunc(b bool) {
	if !b {
		panic("assertion failed")
	}
}

// FileIsValid reports whether path names an existing, readable regular
// file, used by resultbufctl's config search path.
func FileIsValid(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
