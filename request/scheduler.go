package request

//
// Copyright (c) 2019 ARM Limited.
//
// SPDX-License-Identifier: MIT
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

import (
	"time"
)

type Cancelable interface {
	// Cancel reports whether the task was stopped before it ran
	Cancel() bool
}

// Scheduler runs a task once after a delay
type Scheduler interface {
	Schedule(delay time.Duration, task func()) Cancelable
}

type TimerScheduler struct {
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (scheduler *TimerScheduler) Schedule(delay time.Duration, task func()) Cancelable {
	return &timerTask{timer: time.AfterFunc(delay, task)}
}

type timerTask struct {
	timer *time.Timer
}

func (task *timerTask) Cancel() bool {
	return task.timer.Stop()
}
