/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Paint order is slice order: index 0 is drawn first (bottom).
// Reorder helpers splice in place and return the element's new index.

// IndexOf returns the index of the element with id, or -1.
func IndexOf(elems []Element, id string) int {
	for i := range elems {
		if elems[i].ID == id {
			return i
		}
	}
	return -1
}

// MoveElement moves elems[from] to position to, shifting the others.
func MoveElement(elems []Element, from, to int) int {
	if from < 0 || from >= len(elems) {
		return -1
	}
	if to < 0 {
		to = 0
	}
	if to >= len(elems) {
		to = len(elems) - 1
	}
	if from == to {
		return to
	}
	e := elems[from]
	if from < to {
		copy(elems[from:to], elems[from+1:to+1])
	} else {
		copy(elems[to+1:from+1], elems[to:from])
	}
	elems[to] = e
	return to
}

func BringToFront(elems []Element, id string) int {
	return MoveElement(elems, IndexOf(elems, id), len(elems)-1)
}

func SendToBack(elems []Element, id string) int {
	return MoveElement(elems, IndexOf(elems, id), 0)
}

func BringForward(elems []Element, id string) int {
	i := IndexOf(elems, id)
	if i < 0 {
		return -1
	}
	return MoveElement(elems, i, i+1)
}

func SendBackward(elems []Element, id string) int {
	i := IndexOf(elems, id)
	if i < 0 {
		return -1
	}
	return MoveElement(elems, i, i-1)
}
