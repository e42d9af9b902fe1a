/**
 * Copyright 2018 Atos
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package vmdb

import (
	"strings"

	"manageiq-vmdb/model"
)

const hrefField = "href"

// ResolveHref returns the resource path designated by an href string
func ResolveHref(href string) string {
	if strings.HasPrefix(href, model.RawSlugMarker) {
		return strings.TrimPrefix(href, model.RawSlugMarker)
	}
	return href
}

// ResolveSelfLink returns the resource path of an object previously returned by the API
func ResolveSelfLink(object map[string]interface{}) (string, error) {
	href, ok := object[hrefField].(string)
	if !ok || href == "" {
		return "", validationErrorf("vmdb object has no href")
	}

	marker := model.APIPrefix + "/"
	if i := strings.Index(href, marker); i >= 0 {
		return href[i+len(marker):], nil
	}

	return href, nil
}

// ResolvePath returns the resource path of a reference
func ResolvePath(ref model.ObjectReference) (string, error) {
	if ref.Object != nil {
		return ResolveSelfLink(ref.Object)
	}
	return ResolveHref(ref.Href), nil
}
