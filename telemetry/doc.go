/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package telemetry reports engine activity through OpenTelemetry metrics
// and exposes type cache statistics to Prometheus.
//
// Recorder implements both cache.Observer and proxy.Observer, so one value
// can be attached to the default generator and to every proxy it builds.
// Instruments are created lazily against the global MeterProvider.
package telemetry
