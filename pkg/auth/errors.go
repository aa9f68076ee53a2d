// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import "errors"

// isUnauthorized reports whether err is a definitive auth rejection.
func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
