// Package source loads workflow graphs from disk and keeps deployed
// workflows in step with the files.
//
// Each .json, .yaml or .yml file under the configured path is one workflow.
// Its id is the file name without extension, so "onboarding.yaml" deploys
// workflow "onboarding". A Syncer saves and deploys every file on start and
// again whenever the watcher reports a change.
package source
