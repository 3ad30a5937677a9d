// Package kubernetes hands pipeline schedules off to a cluster as batch
// CronJobs, so an external orchestrator owns the recurring execution while
// this service stays the source of truth for the declarations.
package kubernetes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"elt-orchestration-service/internal/config"
	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

var cronJobGVR = schema.GroupVersionResource{
	Group:    "batch",
	Version:  "v1",
	Resource: "cronjobs",
}

// Cron expressions for the declared schedule intervals. "@once" schedules
// are suspended; they are only run on demand.
var intervalCron = map[string]string{
	"@hourly":  "0 * * * *",
	"@daily":   "0 0 * * *",
	"@weekly":  "0 0 * * 0",
	"@monthly": "0 0 1 * *",
	"@yearly":  "0 0 1 1 *",
}

type client struct {
	client    dynamic.Interface
	enabled   bool
	namespace string
	image     string
	envSecret string
}

// NewClient creates a new Kubernetes client adapter.
func NewClient(cfg *config.KubernetesConfig) (ports.KubernetesClient, error) {
	if !cfg.Enabled {
		return &client{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	dyn, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pipelines"
	}

	return &client{
		client:    dyn,
		enabled:   true,
		namespace: namespace,
		image:     cfg.Image,
		envSecret: cfg.EnvSecret,
	}, nil
}

func (c *client) IsAvailable() bool {
	return c.enabled
}

// ApplyScheduleCronJob creates or updates the CronJob backing a schedule.
func (c *client) ApplyScheduleCronJob(ctx context.Context, s *domain.Schedule) error {
	obj := c.buildCronJob(s)

	_, err := c.client.Resource(cronJobGVR).
		Namespace(c.namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if errors.IsAlreadyExists(err) {
		_, err = c.client.Resource(cronJobGVR).
			Namespace(c.namespace).
			Update(ctx, obj, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("apply cronjob: %w", err)
	}
	return nil
}

// DeleteScheduleCronJob removes the CronJob backing a schedule. A missing
// CronJob is not an error.
func (c *client) DeleteScheduleCronJob(ctx context.Context, name string) error {
	err := c.client.Resource(cronJobGVR).
		Namespace(c.namespace).
		Delete(ctx, cronJobName(name), metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		return fmt.Errorf("delete cronjob: %w", err)
	}
	return nil
}

func (c *client) buildCronJob(s *domain.Schedule) *unstructured.Unstructured {
	cron, recurring := intervalCron[s.Interval]
	if !recurring {
		cron = "0 0 1 1 *"
	}

	args := []any{"elt", s.Extractor, s.Loader, "--transform", string(s.Transform), "--job-id", s.Name}

	container := map[string]any{
		"name":  "pipeline",
		"image": c.image,
		"args":  args,
		"volumeMounts": []any{
			map[string]any{
				"name":      "project",
				"mountPath": "/project",
			},
		},
	}
	// The container needs the same DATABASE_* credentials and plugin
	// setting overrides the service runs with; they live in a Secret
	// managed alongside the deployment.
	if c.envSecret != "" {
		container["envFrom"] = []any{
			map[string]any{
				"secretRef": map[string]any{"name": c.envSecret},
			},
		}
	}

	return &unstructured.Unstructured{
		Object: map[string]any{
			"apiVersion": "batch/v1",
			"kind":       "CronJob",
			"metadata": map[string]any{
				"name":      cronJobName(s.Name),
				"namespace": c.namespace,
				"labels": map[string]any{
					"app.kubernetes.io/managed-by": "elt-orchestration-service",
					"pipelines/schedule":           s.Name,
				},
			},
			"spec": map[string]any{
				"schedule": cron,
				"suspend":  !recurring,
				"jobTemplate": map[string]any{
					"spec": map[string]any{
						"backoffLimit": int64(0),
						"template": map[string]any{
							"spec": map[string]any{
								"restartPolicy": "Never",
								"containers":    []any{container},
								"volumes": []any{
									map[string]any{
										"name": "project",
										"persistentVolumeClaim": map[string]any{
											"claimName": "pipeline-project",
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func cronJobName(schedule string) string {
	return "pipeline-" + schedule
}
