// Package manifest wraps a rendered agent configuration in a Kubernetes
// ConfigMap so it can be applied next to the agent's DaemonSet or StatefulSet.
//
// Labels always carry app.kubernetes.io/name and app.kubernetes.io/managed-by;
// caller labels are merged on top. Map keys are emitted sorted, so identical
// input gives identical manifests.
package manifest
